package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	DefaultVideoResults = 10
	maxUpstreamResults  = 50
	musicCategoryID     = "10"
)

// moodQueries lists the search phrases picked from for each supported mood.
var moodQueries = map[string][]string{
	"sad": {
		"sad emotional piano music",
		"melancholic songs playlist",
		"heartbreak songs",
		"emotional music mix",
		"sad indie music playlist",
	},
	"calm": {
		"calm relaxing music",
		"peaceful ambient music",
		"chill acoustic music",
		"soft background music",
		"calm piano music",
	},
	"peaceful": {
		"peaceful meditation music",
		"zen relaxation music",
		"nature sounds music",
		"tranquil spa music",
		"peaceful guitar music",
	},
	"happy": {
		"happy upbeat music",
		"feel good songs",
		"positive vibes playlist",
		"cheerful pop music",
		"happy indie music",
	},
	"energetic": {
		"energetic workout music",
		"upbeat gym music",
		"high energy dance music",
		"motivational workout songs",
		"powerful electronic music",
	},
	"focused": {
		"focus study music lofi",
		"deep focus music",
		"concentration music",
		"productivity music",
		"study beats",
	},
	"chill": {
		"chill lofi hip hop",
		"relaxing beats",
		"chillout music mix",
		"lazy day playlist",
		"downtempo music",
	},
	"motivated": {
		"motivational music",
		"epic inspirational music",
		"powerful workout motivation",
		"success music",
		"pump up songs",
	},
}

// moodOrder fixes the order Moods reports.
var moodOrder = []string{"sad", "calm", "peaceful", "happy", "energetic", "focused", "chill", "motivated"}

type Video struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
}

// YouTubeService searches music videos through the YouTube Data API.
type YouTubeService struct {
	apiKey string
	opts   []option.ClientOption
	pick   func(n int) int
	// shuffle permutes n elements through swap.
	shuffle func(n int, swap func(i, j int))
}

// NewYouTubeService builds the client lazily per request. Extra options replace the
// API key transport, which tests use to point at a local server.
func NewYouTubeService(apiKey string, opts ...option.ClientOption) *YouTubeService {
	if len(opts) == 0 && apiKey != "" {
		opts = []option.ClientOption{option.WithAPIKey(apiKey)}
	}
	return &YouTubeService{apiKey: apiKey, opts: opts, pick: rand.IntN, shuffle: rand.Shuffle}
}

func (s *YouTubeService) Configured() bool { return s.apiKey != "" }

// Moods returns the moods with curated queries.
func Moods() []string {
	out := make([]string, len(moodOrder))
	copy(out, moodOrder)
	return out
}

// MoodQuery picks one of the curated queries for mood, or "<mood> music playlist" when unknown.
func (s *YouTubeService) MoodQuery(mood string) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if qs, ok := moodQueries[mood]; ok {
		return qs[s.pick(len(qs))]
	}
	return mood + " music playlist"
}

// SearchByMood returns up to n shuffled videos for a mood.
func (s *YouTubeService) SearchByMood(ctx context.Context, mood string, n int) ([]Video, error) {
	return s.search(ctx, s.MoodQuery(mood), n)
}

// Search returns up to n shuffled music videos matching query.
func (s *YouTubeService) Search(ctx context.Context, query string, n int) ([]Video, error) {
	return s.search(ctx, strings.TrimSpace(query)+" music", n)
}

func (s *YouTubeService) search(ctx context.Context, query string, n int) ([]Video, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("youtube: %w", ErrNotConfigured)
	}
	if n <= 0 {
		n = DefaultVideoResults
	}
	svc, err := youtube.NewService(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	resp, err := svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		SafeSearch("moderate").
		MaxResults(int64(min(2*n, maxUpstreamResults))).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{Service: "youtube", Status: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		v := Video{VideoID: item.Id.VideoId, Title: item.Snippet.Title, Channel: item.Snippet.ChannelTitle}
		if th := item.Snippet.Thumbnails; th != nil && th.Medium != nil {
			v.Thumbnail = th.Medium.Url
		}
		videos = append(videos, v)
	}
	s.shuffle(len(videos), func(i, j int) { videos[i], videos[j] = videos[j], videos[i] })
	if len(videos) > n {
		videos = videos[:n]
	}
	return videos, nil
}

// KnownMood reports whether mood has curated queries.
func KnownMood(mood string) bool {
	_, ok := moodQueries[strings.ToLower(mood)]
	return ok
}

