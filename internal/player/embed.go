package player

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
)

// Builder constructs playback URLs. The embed targets are opaque iframes;
// only the URL contract matters here.
type Builder struct {
	movieBase string
	tvBase    string
}

func NewBuilder(cfg config.PlayerConfig) *Builder {
	return &Builder{
		movieBase: strings.TrimRight(cfg.MovieEmbedBase, "/"),
		tvBase:    strings.TrimRight(cfg.TVEmbedBase, "/"),
	}
}

// MovieEmbedURL returns the iframe URL for one movie.
func (b *Builder) MovieEmbedURL(id int64) string {
	return fmt.Sprintf("%s/%d", b.movieBase, id)
}

// TVEmbedURL returns the iframe URL for one episode. The query flags drive
// the embedded player chrome: autoplay on, next-episode button and episode
// selector enabled.
func (b *Builder) TVEmbedURL(id int64, season, episode int) string {
	return fmt.Sprintf("%s/%d/%d/%d?color=e50914&autoPlay=true&nextEpisode=true&episodeSelector=true",
		b.tvBase, id, season, episode)
}

// SportsWatchPath builds the in-app player path for a match: the primary
// source in the path, the title and the full alternative-source list in the
// query so the player can switch providers without another schedule fetch.
// Returns false for matches with no sources.
func (b *Builder) SportsWatchPath(m *models.SportsMatch) (string, bool) {
	if m == nil || !m.Playable() {
		return "", false
	}

	primary := m.Sources[0]
	sourcesJSON, err := json.Marshal(m.Sources)
	if err != nil {
		return "", false
	}

	params := url.Values{}
	params.Set("title", m.Title)
	params.Set("sources", base64.StdEncoding.EncodeToString(sourcesJSON))

	return fmt.Sprintf("/sports/%s/%s/watch?%s",
		url.PathEscape(primary.Source),
		url.PathEscape(primary.ID),
		params.Encode(),
	), true
}

// DecodeSources reverses the sources query parameter back into the
// alternative-source list.
func DecodeSources(encoded string) ([]models.SourceRef, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding sources param: %w", err)
	}
	var sources []models.SourceRef
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("unmarshaling sources param: %w", err)
	}
	return sources, nil
}
