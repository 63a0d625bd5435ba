package quotes

import (
	"fmt"
	"net/http"
	"strings"
)

// SourcesConfig selects and configures external sources.
type SourcesConfig struct {
	Names        []string
	BrapiBaseURL string
	BrapiToken   string
}

// BuildSources instantiates sources in the order named. Unknown names are an
// error so a typo in configuration does not silently drop a source.
func BuildSources(httpClient *http.Client, cfg SourcesConfig) ([]Source, error) {
	var sources []Source
	for _, name := range cfg.Names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case "brapi":
			sources = append(sources, NewBrapi(httpClient, cfg.BrapiBaseURL, cfg.BrapiToken))
		case "yahoo":
			sources = append(sources, NewYahoo())
		default:
			return nil, fmt.Errorf("unknown quote source %q", name)
		}
	}
	return sources, nil
}
