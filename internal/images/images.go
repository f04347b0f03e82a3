// Package images selects provider image assets per configured qualifier and
// attaches them to the enriched document as image sub-assets.
package images

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/logging"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

// Downloader fetches image bytes from the provider CDN.
type Downloader interface {
	DownloadImage(ctx context.Context, assetURI string) ([]byte, error)
}

// Options configure one selection pass.
type Options struct {
	// Qualifiers lists the image qualifiers to attach, in configured order.
	Qualifiers []string
	// Download disables network fetches when false; selection still runs so
	// change detection stays accurate.
	Download bool
	// WorkDir receives downloaded image files.
	WorkDir string
	// IsMovie skips series and show level imagery.
	IsMovie bool
}

// Worker runs image selection against a provider asset list.
type Worker struct {
	downloader Downloader
	logger     *slog.Logger
}

// NewWorker wires a selection worker.
func NewWorker(downloader Downloader, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{downloader: downloader, logger: logger}
}

// Select resolves the provider asset each configured qualifier would use
// today, without downloading. The result feeds change detection.
func Select(assets []gracenote.ImageAsset, opts Options) []tracking.ImageRef {
	refs := make([]tracking.ImageRef, 0, len(opts.Qualifiers))
	satisfied := make(map[string]struct{}, len(opts.Qualifiers))
	for _, qualifier := range opts.Qualifiers {
		key := strings.ToLower(strings.TrimSpace(qualifier))
		if key == "" {
			continue
		}
		if _, done := satisfied[key]; done {
			continue
		}
		asset, ok := pickAsset(assets, qualifier, opts.IsMovie)
		if !ok {
			continue
		}
		satisfied[key] = struct{}{}
		refs = append(refs, tracking.ImageRef{Qualifier: qualifier, Path: path.Base(asset.URI)})
	}
	return refs
}

// pickAsset returns the lowest-ordered provider asset matching a qualifier.
// Movie packages skip series and show level imagery.
func pickAsset(assets []gracenote.ImageAsset, qualifier string, isMovie bool) (gracenote.ImageAsset, bool) {
	candidates := make([]gracenote.ImageAsset, 0, 2)
	for _, asset := range assets {
		if !strings.EqualFold(strings.TrimSpace(asset.Qualifier), strings.TrimSpace(qualifier)) {
			continue
		}
		if isMovie && isSeriesImagery(asset) {
			continue
		}
		if strings.TrimSpace(asset.URI) == "" {
			continue
		}
		candidates = append(candidates, asset)
	}
	if len(candidates) == 0 {
		return gracenote.ImageAsset{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AdiOrder < candidates[j].AdiOrder
	})
	return candidates[0], true
}

func isSeriesImagery(asset gracenote.ImageAsset) bool {
	category := strings.ToLower(asset.Category)
	uri := strings.ToLower(asset.URI)
	return strings.Contains(category, "series") || strings.Contains(category, "show") ||
		strings.Contains(uri, "_series_") || strings.Contains(uri, "_show_")
}

// Apply downloads the selected images and attaches or refreshes image
// sub-assets on the document. Images already recorded for their qualifier in
// cached keep their sub-asset untouched and are not fetched again. It
// returns the refs now attached to the document.
func (w *Worker) Apply(ctx context.Context, doc *adi.Document, assets []gracenote.ImageAsset, cached []tracking.ImageRef, opts Options) ([]tracking.ImageRef, error) {
	log := logging.WithContext(ctx, w.logger)

	known := make(map[string]string, len(cached))
	for _, ref := range cached {
		known[strings.ToLower(ref.Qualifier)] = path.Base(ref.Path)
	}

	selected := Select(assets, opts)
	attached := make([]tracking.ImageRef, 0, len(selected))
	for _, ref := range selected {
		key := strings.ToLower(ref.Qualifier)
		if existing, ok := known[key]; ok && strings.EqualFold(existing, ref.Path) {
			attached = append(attached, ref)
			continue
		}

		asset, _ := pickAsset(assets, ref.Qualifier, opts.IsMovie)
		if !opts.Download {
			attached = append(attached, ref)
			continue
		}

		payload, err := w.downloader.DownloadImage(ctx, asset.URI)
		if err != nil {
			return attached, fmt.Errorf("download %s image: %w", ref.Qualifier, err)
		}
		localPath := filepath.Join(opts.WorkDir, path.Base(asset.URI))
		if err := os.WriteFile(localPath, payload, 0o644); err != nil {
			return attached, fmt.Errorf("write %s image: %w", ref.Qualifier, err)
		}

		sum := md5.Sum(payload)
		attachImage(doc, asset, path.Base(asset.URI), hex.EncodeToString(sum[:]), len(payload))
		attached = append(attached, ref)
		log.Info("image attached",
			slog.String("qualifier", ref.Qualifier),
			slog.String("file", ref.Path),
			slog.Int("bytes", len(payload)))
	}
	return attached, nil
}

// attachImage updates the image sub-asset sharing the computed image PAID,
// or inserts a new one. The image PAID is the qualifier joined with the
// numeric suffix of the title PAID.
func attachImage(doc *adi.Document, asset gracenote.ImageAsset, filename, checksum string, size int) {
	imagePAID := ImagePAID(asset.Qualifier, doc.PAID())
	for i := range doc.Asset.Assets {
		sub := &doc.Asset.Assets[i]
		class := strings.ToLower(sub.Metadata.AMS.AssetClass)
		if class == adi.ClassMovie || class == adi.ClassPreview {
			continue
		}
		if !strings.EqualFold(sub.Metadata.AMS.AssetID, imagePAID) {
			continue
		}
		sub.Content = &adi.Content{Value: filename}
		sub.Metadata.SetValue(adi.AttrContentCheckSum, checksum)
		sub.Metadata.SetValue(adi.AttrContentFileSize, fmt.Sprintf("%d", size))
		sub.Metadata.SetValue(adi.AttrImageQualifier, asset.Qualifier)
		sub.Metadata.SetValue(adi.AttrImageAspect, asset.AspectRatio)
		return
	}

	meta := adi.Metadata{
		AMS: doc.Asset.Metadata.AMS,
	}
	meta.AMS.AssetClass = adi.ClassImage
	meta.AMS.AssetID = imagePAID
	meta.AMS.AssetName = filename
	meta.SetValue("Type", adi.ClassImage)
	meta.SetValue(adi.AttrContentCheckSum, checksum)
	meta.SetValue(adi.AttrContentFileSize, fmt.Sprintf("%d", size))
	meta.SetValue(adi.AttrEncodingType, "jpeg")
	meta.SetValue(adi.AttrImageQualifier, asset.Qualifier)
	meta.SetValue(adi.AttrImageAspect, asset.AspectRatio)
	doc.Asset.Assets = append(doc.Asset.Assets, adi.MediaAsset{
		Metadata: meta,
		Content:  &adi.Content{Value: filename},
	})
}

// ImagePAID derives the sub-asset id for a qualifier: the qualifier with
// spaces removed, joined with the numeric suffix of the title PAID.
func ImagePAID(qualifier, titlePAID string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(qualifier), " ", "")
	return compact + adi.StripTitlePrefix(titlePAID)
}
