package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDRe    = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	looseVideoRe = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)
	channelIDRe  = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)
)

// ExtractVideoID returns the 11 character video id from any common YouTube
// URL form, or from a bare id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if videoIDRe.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(withScheme(raw))
	if err == nil {
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch host {
		case "youtu.be":
			if id := segments[0]; videoIDRe.MatchString(id) {
				return id, nil
			}
		case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
			if u.Path == "/watch" {
				if id := u.Query().Get("v"); videoIDRe.MatchString(id) {
					return id, nil
				}
			}
			if len(segments) >= 2 {
				switch segments[0] {
				case "embed", "v", "shorts", "live":
					if videoIDRe.MatchString(segments[1]) {
						return segments[1], nil
					}
				}
			}
		}
	}

	if m := looseVideoRe.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidURL
}

type ChannelRefKind string

const (
	ChannelByID       ChannelRefKind = "id"
	ChannelByUsername ChannelRefKind = "username"
	ChannelByHandle   ChannelRefKind = "handle"
)

// ChannelRef identifies a channel the way its URL does.
type ChannelRef struct {
	Value string
	Kind  ChannelRefKind
}

// ParseChannelURL understands /channel/<id>, /user/<name> and /@handle URLs,
// and bare UC channel ids.
func ParseChannelURL(raw string) (ChannelRef, error) {
	raw = strings.TrimSpace(raw)
	if IsChannelID(raw) {
		return ChannelRef{Value: raw, Kind: ChannelByID}, nil
	}
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return ChannelRef{Value: raw[1:], Kind: ChannelByHandle}, nil
	}

	u, err := url.Parse(withScheme(raw))
	if err != nil || !strings.Contains(u.Hostname(), "youtube.com") {
		return ChannelRef{}, fmt.Errorf("%w: unsupported channel URL %q", ErrInvalidURL, raw)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 2 && segments[0] == "channel" && segments[1] != "":
		return ChannelRef{Value: segments[1], Kind: ChannelByID}, nil
	case len(segments) >= 2 && segments[0] == "user" && segments[1] != "":
		return ChannelRef{Value: segments[1], Kind: ChannelByUsername}, nil
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@") && len(segments[0]) > 1:
		return ChannelRef{Value: segments[0][1:], Kind: ChannelByHandle}, nil
	}
	return ChannelRef{}, fmt.Errorf("%w: unsupported channel URL %q", ErrInvalidURL, raw)
}

// IsChannelID reports whether s looks like a channel id (UC + 22 chars).
func IsChannelID(s string) bool {
	return channelIDRe.MatchString(s)
}

func withScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
