package enrich

import (
	"path"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/tracking"
)

// MergeResult reports the side effects of a merge pass.
type MergeResult struct {
	// InvalidateImageCache is set when a copied image no longer matches the
	// cached image map, forcing the next image-selection pass to treat every
	// image as new.
	InvalidateImageCache bool
}

// MergePrevious folds the previously enriched document's sub-assets into an
// incoming update document.
//
// Movie assets keep the stored attribute list as the base, with the incoming
// update overriding individual attributes and supplying the AMS header, so
// freshly supplied pricing wins while enrichment attributes survive. The
// platform block list always comes from the incoming update. Preview
// metadata is carried forward without content when the update has no preview
// of its own. Image sub-assets are copied verbatim, and a filename mismatch
// against the cached image map invalidates that cache exactly once per
// merge.
func MergePrevious(update, previous *adi.Document, cachedImages []tracking.ImageRef) MergeResult {
	var result MergeResult
	if update == nil || previous == nil {
		return result
	}

	mergeMovie(update, previous)
	mergePreview(update, previous)
	result.InvalidateImageCache = mergeImages(update, previous, cachedImages)
	return result
}

func mergeMovie(update, previous *adi.Document) {
	stored := previous.MovieAsset()
	if stored == nil {
		return
	}
	incoming := update.MovieAsset()
	if incoming == nil {
		update.Asset.Assets = append(update.Asset.Assets, adi.MediaAsset{
			Metadata: cloneMetadata(stored.Metadata),
		})
		return
	}

	merged := cloneMetadata(stored.Metadata)
	merged.AMS = incoming.Metadata.AMS
	merged.Remove(adi.AttrBlockPlatform)
	for _, entry := range incoming.Metadata.AppData {
		if strings.EqualFold(entry.Name, adi.AttrBlockPlatform) {
			merged.AppData = append(merged.AppData, entry)
			continue
		}
		merged.SetValue(entry.Name, entry.Value)
	}
	incoming.Metadata = merged
}

func mergePreview(update, previous *adi.Document) {
	if update.PreviewAsset() != nil {
		return
	}
	stored := previous.PreviewAsset()
	if stored == nil {
		return
	}
	update.Asset.Assets = append(update.Asset.Assets, adi.MediaAsset{
		Metadata: cloneMetadata(stored.Metadata),
	})
}

func mergeImages(update, previous *adi.Document, cachedImages []tracking.ImageRef) bool {
	cached := make(map[string]string, len(cachedImages))
	for _, ref := range cachedImages {
		cached[strings.ToLower(ref.Qualifier)] = path.Base(ref.Path)
	}

	invalidated := false
	for _, stored := range previous.ImageAssets() {
		clone := adi.MediaAsset{Metadata: cloneMetadata(stored.Metadata)}
		if stored.Content != nil {
			content := *stored.Content
			clone.Content = &content
		}
		update.Asset.Assets = append(update.Asset.Assets, clone)

		if invalidated || len(cached) == 0 {
			continue
		}
		qualifier := strings.ToLower(stored.Metadata.Value(adi.AttrImageQualifier))
		filename := ""
		if stored.Content != nil {
			filename = path.Base(stored.Content.Value)
		}
		want, ok := cached[qualifier]
		if !ok || !strings.EqualFold(want, filename) {
			invalidated = true
		}
	}
	return invalidated
}

func cloneMetadata(meta adi.Metadata) adi.Metadata {
	clone := meta
	clone.AppData = make([]adi.AppData, len(meta.AppData))
	copy(clone.AppData, meta.AppData)
	return clone
}
