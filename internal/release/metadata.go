package release

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/oshokin/uadng/internal/domain/update"
)

type (
	// Metadata is the part of a release document the updater consumes.
	Metadata struct {
		// TagName is the raw tag, e.g. "v1.2.0". Empty when absent or not a string.
		TagName string
		// Assets lists the downloadable files in registry order.
		Assets []Asset
	}

	// Asset is one downloadable file of a release.
	Asset struct {
		// Name is the asset file name.
		Name string
		// BrowserDownloadURL is the direct download URL. Empty when absent or not a string.
		BrowserDownloadURL string
	}

	// wireRelease keeps fields raw so that type mismatches surface as missing values.
	wireRelease struct {
		TagName json.RawMessage `json:"tag_name"`
		Assets  json.RawMessage `json:"assets"`
	}

	// wireAsset is the JSON shape of a release asset.
	wireAsset struct {
		Name               json.RawMessage `json:"name"`
		BrowserDownloadURL json.RawMessage `json:"browser_download_url"`
	}
)

// Decode parses a release document. Only malformed JSON is an error; fields of
// the wrong type are treated as absent and reported later by the accessors.
func Decode(r io.Reader) (*Metadata, error) {
	var raw wireRelease
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	metadata := &Metadata{
		TagName: rawString(raw.TagName),
	}

	var assets []json.RawMessage
	if err := json.Unmarshal(raw.Assets, &assets); err != nil {
		return metadata, nil //nolint:nilerr // Non-array assets behave as missing ones.
	}

	metadata.Assets = make([]Asset, 0, len(assets))

	for _, element := range assets {
		var asset wireAsset

		// A non-object element becomes an asset without URL.
		_ = json.Unmarshal(element, &asset)

		metadata.Assets = append(metadata.Assets, Asset{
			Name:               rawString(asset.Name),
			BrowserDownloadURL: rawString(asset.BrowserDownloadURL),
		})
	}

	return metadata, nil
}

// Version returns the tag without its single leading non-digit prefix ("v1.2.0" -> "1.2.0").
func (m *Metadata) Version() string {
	return TrimPrefix(m.TagName)
}

// FirstAssetURL returns the download URL of the first listed asset.
// It fails with update.ErrInvalidBinary when there is none.
func (m *Metadata) FirstAssetURL() (string, error) {
	if len(m.Assets) == 0 {
		return "", fmt.Errorf("release %q has no assets: %w", m.TagName, update.ErrInvalidBinary)
	}

	assetURL := m.Assets[0].BrowserDownloadURL
	if assetURL == "" {
		return "", fmt.Errorf("release %q first asset has no download url: %w", m.TagName, update.ErrInvalidBinary)
	}

	return assetURL, nil
}

// TrimPrefix removes one leading character from tag when it is not a digit.
func TrimPrefix(tag string) string {
	first, size := utf8.DecodeRuneInString(tag)
	if size == 0 || unicode.IsDigit(first) {
		return tag
	}

	return tag[size:]
}

// rawString returns the JSON string held in raw, or "" for any other value.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}
