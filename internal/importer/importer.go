// Package importer inspects incoming package archives: it extracts the ADI
// metadata document, normalizes the package identity, and applies the
// platform policy gates.
package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/services"
)

// maxDocumentSize bounds the metadata file read out of an archive.
const maxDocumentSize = 16 << 20

// ArchiveInfo summarizes the physical payload of a package archive.
type ArchiveInfo struct {
	HasMediaFolder   bool
	HasPreviewAssets bool
	MetadataFile     string
}

// PackageFacts carries everything the import stage learns about a package.
type PackageFacts struct {
	Doc             *adi.Document
	PAID            string
	PAIDNormalized  bool
	ProviderID      string
	OnAPIProviderID string
	Title           string
	VersionMajor    int
	VersionMinor    int
	HasMedia        bool
	HasPreview      bool
	IsAdult         bool
	IsUltraHD       bool
	IsHD            bool
	IsTVOD          bool
}

// ReadArchiveInfo scans the archive listing without extracting anything.
func ReadArchiveInfo(archivePath string) (ArchiveInfo, error) {
	var info ArchiveInfo
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return info, services.Wrap(services.ErrImportFailure, "import", "read_archive", "open archive", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		name := strings.ToLower(file.Name)
		switch {
		case strings.HasSuffix(name, ".xml"):
			if info.MetadataFile == "" {
				info.MetadataFile = file.Name
			}
		case strings.Contains(name, "media/"):
			info.HasMediaFolder = true
		case strings.Contains(path.Base(name), "preview"):
			info.HasPreviewAssets = true
		}
	}
	if info.MetadataFile == "" {
		return info, services.Wrap(services.ErrImportFailure, "import", "read_archive", "archive carries no metadata document", nil)
	}
	return info, nil
}

// ExtractDocument parses the ADI metadata document out of the archive.
func ExtractDocument(archivePath string) (*adi.Document, error) {
	info, err := ReadArchiveInfo(archivePath)
	if err != nil {
		return nil, err
	}
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrImportFailure, "import", "extract_document", "open archive", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != info.MetadataFile {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, services.Wrap(services.ErrImportFailure, "import", "extract_document", "open metadata entry", err)
		}
		payload, err := io.ReadAll(io.LimitReader(rc, maxDocumentSize))
		rc.Close()
		if err != nil {
			return nil, services.Wrap(services.ErrImportFailure, "import", "extract_document", "read metadata entry", err)
		}
		doc, err := adi.Parse(payload)
		if err != nil {
			return nil, services.Wrap(services.ErrImportFailure, "import", "extract_document", "parse metadata document", err)
		}
		return doc, nil
	}
	return nil, services.Wrap(services.ErrImportFailure, "import", "extract_document", "metadata entry vanished from archive", nil)
}

// Inspect extracts and validates the package document and derives the facts
// the pipeline stores on the queue item. The PAID is normalized in place on
// the document when the distributor shipped a non-standard identifier.
func Inspect(archivePath string, cfg *config.Config) (*PackageFacts, error) {
	doc, err := ExtractDocument(archivePath)
	if err != nil {
		return nil, err
	}
	if err := adi.ValidateDocument(doc); err != nil {
		return nil, services.Wrap(services.ErrImportFailure, "import", "inspect", "invalid metadata document", err)
	}

	paid, normalized, err := adi.NormalizePAID(doc.PAID())
	if err != nil {
		return nil, services.Wrap(services.ErrImportFailure, "import", "inspect", "normalize package identifier", err)
	}
	if normalized {
		doc.SetAssetID(paid)
	}

	meta := doc.TitleMetadata()
	facts := &PackageFacts{
		Doc:             doc,
		PAID:            paid,
		PAIDNormalized:  normalized,
		ProviderID:      meta.AMS.ProviderID,
		OnAPIProviderID: adi.OnAPIProviderID(meta.AMS.ProviderID, paid),
		Title:           meta.Value(adi.AttrTitle),
		VersionMajor:    doc.VersionMajor(),
		VersionMinor:    doc.VersionMinor(),
		HasMedia:        doc.HasMediaContent(),
		HasPreview:      doc.HasPreviewContent(),
		IsAdult:         strings.EqualFold(meta.Value(adi.AttrAudience), "adult"),
		IsUltraHD:       strings.EqualFold(movieValue(doc, adi.AttrEncodingType), "h264-uhd"),
		IsHD:            strings.EqualFold(movieValue(doc, adi.AttrHDContent), "y"),
		IsTVOD:          isTVOD(meta, cfg.Enrichment.TVODProductMatch),
	}
	return facts, nil
}

// CheckPolicy applies the platform gates in order. The first violated gate
// rejects the package.
func CheckPolicy(facts *PackageFacts, policy config.Policy) error {
	if facts.IsAdult && !policy.AllowAdultContent {
		return services.Wrap(services.ErrPolicyRejection, "import", "policy", "adult content is not accepted", nil)
	}
	if facts.IsUltraHD && !policy.ProcessUltraHD {
		return services.Wrap(services.ErrPolicyRejection, "import", "policy", "ultra hd encodes are not accepted", nil)
	}
	if !facts.IsHD && !policy.AllowSDContent {
		return services.Wrap(services.ErrPolicyRejection, "import", "policy", "sd content is not accepted", nil)
	}
	return nil
}

// StripPosters removes poster-class sub-assets; poster art is platform
// managed and never accepted from the distributor. It returns the number of
// removed assets.
func StripPosters(doc *adi.Document) int {
	kept := doc.Asset.Assets[:0]
	removed := 0
	for _, sub := range doc.Asset.Assets {
		if strings.EqualFold(sub.Metadata.AMS.AssetClass, adi.ClassPoster) {
			removed++
			continue
		}
		kept = append(kept, sub)
	}
	doc.Asset.Assets = kept
	return removed
}

func movieValue(doc *adi.Document, attr string) string {
	movie := doc.MovieAsset()
	if movie == nil {
		return ""
	}
	return movie.Metadata.Value(attr)
}

func isTVOD(meta *adi.Metadata, productMatch string) bool {
	if productMatch == "" {
		return false
	}
	product := strings.ToLower(meta.AMS.Product)
	return strings.Contains(product, strings.ToLower(productMatch))
}

// ExtractAll unpacks the archive into destDir, preserving the entry layout.
// Entry names escaping destDir fail the extraction.
func ExtractAll(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return services.Wrap(services.ErrImportFailure, "import", "extract_all", "open archive", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractEntry(file, destDir); err != nil {
			return services.Wrap(services.ErrImportFailure, "import", "extract_all", fmt.Sprintf("extract %s", file.Name), err)
		}
	}
	return nil
}
