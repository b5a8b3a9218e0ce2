package downloader

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsupportedURL is returned when no backend matches the input.
var ErrUnsupportedURL = errors.New("unsupported URL")

// Kind identifies the extractor backend chosen for a URL.
type Kind int

const (
	KindGeneric Kind = iota
	KindInstagram
	KindTorrent
)

func (k Kind) String() string {
	switch k {
	case KindInstagram:
		return "instagram"
	case KindTorrent:
		return "torrent"
	default:
		return "generic"
	}
}

// Selection carries the chosen backend kind together with the derived
// human-readable source label, so no downstream code needs to re-inspect
// backend types.
type Selection struct {
	Kind   Kind
	Source string
}

// Select chooses the backend for a URL and derives its source label. An
// empty or unparseable URL fails before any task is created.
func Select(rawURL string) (Selection, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Selection{}, ErrUnsupportedURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Selection{}, ErrUnsupportedURL
	}

	if strings.EqualFold(parsed.Scheme, "magnet") {
		return Selection{Kind: KindTorrent, Source: "Magnet"}, nil
	}
	if strings.Contains(parsed.Hostname(), "instagram.com") {
		return Selection{Kind: KindInstagram, Source: "Instagram"}, nil
	}
	return Selection{Kind: KindGeneric, Source: sourceFromHost(parsed.Hostname())}, nil
}

// sourceFromHost extracts the second-level domain label. The multi-part TLD
// check (both trailing segments at most 3 characters, as in "co.kr") is a
// heuristic, not a public-suffix lookup, and mislabels some real domains;
// it is kept for parity with the original behavior.
func sourceFromHost(host string) string {
	if host == "" {
		return "Unknown"
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return "Unknown"
	}
	name := parts[len(parts)-2]
	if len(parts) > 2 && len(parts[len(parts)-2]) <= 3 && len(parts[len(parts)-1]) <= 3 {
		name = parts[len(parts)-3]
	}
	return capitalize(name)
}

func capitalize(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
