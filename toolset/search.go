package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/fanout"
	"github.com/hupe1980/searchmesh/imagecheck"
	"github.com/hupe1980/searchmesh/provider/exa"
	"github.com/hupe1980/searchmesh/provider/tavily"
	"github.com/hupe1980/searchmesh/provider/youtube"
	"github.com/hupe1980/searchmesh/tool"
)

const (
	defaultMaxResults   = 10
	newsWindowDays      = 7
	academicCandidates  = 20
	academicResults     = 10
	academicSummaryHint = "Abstract of the Paper"
)

type webSearchArgs struct {
	Queries        []string `json:"queries" description:"Array of search queries to look up on the web."`
	MaxResults     []int    `json:"maxResults,omitempty" description:"Array of maximum number of results to return per query. Defaults to 10."`
	Topics         []string `json:"topics,omitempty" enum:"general,news" description:"Array of topic types to search for. Defaults to general."`
	SearchDepth    []string `json:"searchDepth,omitempty" enum:"basic,advanced" description:"Array of search depths to use. Defaults to basic."`
	ExcludeDomains []string `json:"exclude_domains,omitempty" description:"A list of domains to exclude from all search results."`
}

// WebResult is one hit of a web search query.
type WebResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	RawContent    string `json:"raw_content,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// QuerySearch is the outcome of one query of a web_search call. A failed
// query carries Error and empty results.
type QuerySearch struct {
	Query   string             `json:"query"`
	Results []WebResult        `json:"results"`
	Images  []imagecheck.Image `json:"images"`
	Error   string             `json:"error,omitempty"`
}

// WebSearchOutput is the web_search result.
type WebSearchOutput struct {
	Searches []QuerySearch `json:"searches"`
}

// pick returns vals[i], falling back to vals[0] and then def when the slot is
// missing or zero.
func pick[T comparable](vals []T, i int, def T) T {
	var zero T
	if i < len(vals) && vals[i] != zero {
		return vals[i]
	}
	if len(vals) > 0 && vals[0] != zero {
		return vals[0]
	}
	return def
}

func (ts *Toolset) webSearch() tool.Tool {
	return tool.NewTypedTool(WebSearch,
		"Search the web for information with multiple queries, max results and search depth.",
		func(tc *core.ToolContext, args webSearchArgs) (any, error) {
			if ts.c.Tavily == nil {
				return nil, notConfigured(WebSearch, "TAVILY_API_KEY")
			}
			if len(args.Queries) == 0 {
				return nil, invalidArgs(WebSearch, "queries must not be empty")
			}

			type job struct {
				index int
				query string
			}
			jobs := make([]job, len(args.Queries))
			for i, q := range args.Queries {
				jobs[i] = job{index: i, query: q}
			}

			results, err := run(tc.Context(), ts, WebSearch, jobs, func(ctx context.Context, j job) (QuerySearch, error) {
				topic := tavily.Topic(pick(args.Topics, j.index, string(tavily.TopicGeneral)))
				opts := tavily.SearchOptions{
					Topic:                    topic,
					MaxResults:               pick(args.MaxResults, j.index, defaultMaxResults),
					SearchDepth:              tavily.Depth(pick(args.SearchDepth, j.index, string(tavily.DepthBasic))),
					IncludeAnswer:            true,
					IncludeImages:            true,
					IncludeImageDescriptions: true,
					ExcludeDomains:           args.ExcludeDomains,
				}
				if topic == tavily.TopicNews {
					opts.Days = newsWindowDays
				}
				resp, err := ts.c.Tavily.Search(ctx, j.query, opts)
				if err != nil {
					return QuerySearch{}, err
				}

				out := QuerySearch{Query: j.query, Results: make([]WebResult, 0, len(resp.Results))}
				for _, r := range resp.Results {
					wr := WebResult{URL: r.URL, Title: r.Title, Content: r.Content, RawContent: r.RawContent}
					if topic == tavily.TopicNews {
						wr.PublishedDate = r.PublishedDate
					}
					out.Results = append(out.Results, wr)
				}
				images := make([]imagecheck.Image, len(resp.Images))
				for i, img := range resp.Images {
					images[i] = imagecheck.Image{URL: img.URL, Description: img.Description}
				}
				out.Images = ts.c.Images.FilterImages(ctx, images, true)
				return out, nil
			})
			if err != nil {
				return nil, fmt.Errorf("web search failed: %w", err)
			}

			output := WebSearchOutput{Searches: make([]QuerySearch, len(results))}
			for i, r := range results {
				if r.Err != nil {
					tc.Logger().Warn("tool.web_search.query_failed", "query", args.Queries[i], "error", r.Err.Error())
					output.Searches[i] = QuerySearch{
						Query:   args.Queries[i],
						Results: []WebResult{},
						Images:  []imagecheck.Image{},
						Error:   r.Err.Error(),
					}
					continue
				}
				output.Searches[i] = r.Value
			}
			return output, nil
		})
}

type queryArgs struct {
	Query string `json:"query" description:"The search query"`
}

// Paper is one academic_search hit.
type Paper struct {
	ID            string  `json:"id,omitempty"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Author        string  `json:"author,omitempty"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Summary       string  `json:"summary"`
}

var (
	summaryPrefix = regexp.MustCompile(`(?i)^Summary:\s*`)
	bracketSuffix = regexp.MustCompile(`\s\[.*?\]$`)
)

// cleanPapers deduplicates by URL, drops entries without a summary, strips
// the "Summary:" prefix and a trailing "[...]" title suffix, and keeps at
// most limit entries.
func cleanPapers(results []exa.Result, limit int) []Paper {
	seen := make(map[string]struct{}, len(results))
	papers := make([]Paper, 0, limit)
	for _, r := range results {
		if len(papers) == limit {
			break
		}
		if _, dup := seen[r.URL]; dup || r.Summary == "" {
			continue
		}
		seen[r.URL] = struct{}{}
		papers = append(papers, Paper{
			ID:            r.ID,
			URL:           r.URL,
			Title:         bracketSuffix.ReplaceAllString(r.Title, ""),
			Author:        r.Author,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
			Summary:       summaryPrefix.ReplaceAllString(r.Summary, ""),
		})
	}
	return papers
}

func (ts *Toolset) academicSearch() tool.Tool {
	return tool.NewTypedTool(AcademicSearch, "Search academic papers and research.",
		func(tc *core.ToolContext, args queryArgs) (any, error) {
			if ts.c.Exa == nil {
				return nil, notConfigured(AcademicSearch, "EXA_API_KEY")
			}
			resp, err := ts.c.Exa.SearchAndContents(tc.Context(), args.Query, academicSummaryHint, exa.SearchOptions{
				Type:       "auto",
				NumResults: academicCandidates,
				Category:   "research paper",
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"results": cleanPapers(resp.Results, academicResults)}, nil
		})
}

type youtubeArgs struct {
	Query       string `json:"query" description:"The search query for YouTube videos"`
	NoOfResults int    `json:"no_of_results,omitempty" default:"5" minimum:"1" maximum:"20" description:"The number of results to return"`
}

// Video is one youtube_search hit. Details, captions and timestamps are
// omitted when their lookup failed.
type Video struct {
	VideoID    string           `json:"videoId"`
	URL        string           `json:"url"`
	Details    *youtube.Details `json:"details,omitempty"`
	Captions   string           `json:"captions,omitempty"`
	Timestamps json.RawMessage  `json:"timestamps,omitempty"`
}

func (ts *Toolset) youtubeSearch() tool.Tool {
	return tool.NewTypedTool(YouTubeSearch, "Search YouTube videos using Exa AI and get detailed video information.",
		func(tc *core.ToolContext, args youtubeArgs) (any, error) {
			if ts.c.Exa == nil {
				return nil, notConfigured(YouTubeSearch, "EXA_API_KEY")
			}
			if ts.c.YouTube == nil {
				return nil, notConfigured(YouTubeSearch, "YT_ENDPOINT")
			}
			resp, err := ts.c.Exa.Search(tc.Context(), args.Query, exa.SearchOptions{
				Type:           "keyword",
				NumResults:     args.NoOfResults,
				IncludeDomains: []string{"youtube.com"},
			})
			if err != nil {
				return nil, err
			}

			videos := make([]Video, 0, len(resp.Results))
			for _, r := range resp.Results {
				if id, ok := youtube.VideoID(r.URL); ok {
					videos = append(videos, Video{VideoID: id, URL: r.URL})
				}
			}

			results, _ := run(tc.Context(), ts, YouTubeSearch, videos, func(ctx context.Context, v Video) (Video, error) {
				return ts.enrichVideo(ctx, tc, v), nil
			})
			for i, r := range results {
				if r.Err == nil {
					videos[i] = r.Value
				}
			}
			return map[string]any{"results": videos}, nil
		})
}

// enrichVideo fetches details, captions and timestamps concurrently. Each
// lookup degrades independently.
func (ts *Toolset) enrichVideo(ctx context.Context, tc *core.ToolContext, v Video) Video {
	yt := ts.c.YouTube
	results, _ := runTasks(ctx, ts, "youtube_details",
		func(ctx context.Context) (any, error) { return yt.VideoData(ctx, v.URL) },
		func(ctx context.Context) (any, error) { return yt.Captions(ctx, v.URL) },
		func(ctx context.Context) (any, error) { return yt.Timestamps(ctx, v.URL) },
	)
	for _, err := range fanout.Errors(results) {
		tc.Logger().Debug("tool.youtube_search.detail_failed", "video_id", v.VideoID, "error", err.Error())
	}
	if r := results[0]; r.OK() {
		v.Details = r.Value.(*youtube.Details)
	}
	if r := results[1]; r.OK() {
		v.Captions = strings.TrimSpace(r.Value.(string))
	}
	if r := results[2]; r.OK() {
		v.Timestamps = r.Value.(json.RawMessage)
	}
	return v
}
