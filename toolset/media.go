package toolset

import (
	"context"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider/tmdb"
	"github.com/hupe1980/searchmesh/tool"
)

const topCast = 5

type tmdbSearchArgs struct {
	Query string `json:"query" description:"The search query for movies/TV shows"`
}

// CastMember is a cast entry with an absolute profile image URL.
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character,omitempty"`
	ProfilePath *string `json:"profile_path"`
}

// MediaCredits is the condensed credits block of a tmdb_search result.
type MediaCredits struct {
	Cast     []CastMember `json:"cast"`
	Director string       `json:"director,omitempty"`
	Writer   string       `json:"writer,omitempty"`
}

func condenseCredits(c *tmdb.Credits) MediaCredits {
	out := MediaCredits{Cast: []CastMember{}}
	for i, p := range c.Cast {
		if i == topCast {
			break
		}
		out.Cast = append(out.Cast, CastMember{
			ID:          p.ID,
			Name:        p.Name,
			Character:   p.Character,
			ProfilePath: tmdb.ImageURL(p.ProfilePath),
		})
	}
	for _, p := range c.Crew {
		if out.Director == "" && p.Job == "Director" {
			out.Director = p.Name
		}
		if out.Writer == "" && (p.Job == "Screenplay" || p.Job == "Writer") {
			out.Writer = p.Name
		}
	}
	return out
}

func (ts *Toolset) tmdbSearch() tool.Tool {
	return tool.NewTypedTool(TMDBSearch, "Search for a movie or TV show using TMDB API",
		func(tc *core.ToolContext, args tmdbSearchArgs) (any, error) {
			if ts.c.TMDB == nil {
				return nil, notConfigured(TMDBSearch, "TMDB_API_KEY")
			}
			hits, err := ts.c.TMDB.SearchMulti(tc.Context(), args.Query)
			if err != nil {
				return nil, err
			}

			var first *tmdb.SearchResult
			for i := range hits {
				if hits[i].MediaType == tmdb.MediaMovie || hits[i].MediaType == tmdb.MediaTV {
					first = &hits[i]
					break
				}
			}
			if first == nil {
				return map[string]any{"result": nil}, nil
			}

			results, err := runTasks(tc.Context(), ts, TMDBSearch,
				func(ctx context.Context) (any, error) { return ts.c.TMDB.Details(ctx, first.MediaType, first.ID) },
				func(ctx context.Context) (any, error) { return ts.c.TMDB.Credits(ctx, first.MediaType, first.ID) },
			)
			if err != nil {
				return nil, err
			}
			if results[0].Err != nil {
				return nil, results[0].Err
			}

			record := results[0].Value.(tmdb.Record).WithImageURLs()
			record["media_type"] = first.MediaType
			credits := MediaCredits{Cast: []CastMember{}}
			if results[1].OK() {
				credits = condenseCredits(results[1].Value.(*tmdb.Credits))
			} else {
				tc.Logger().Warn("tool.tmdb_search.credits_failed", "id", first.ID, "error", results[1].Err.Error())
			}
			record["credits"] = credits
			return map[string]any{"result": record}, nil
		})
}

func (ts *Toolset) trending(name, description string, media tmdb.MediaType) tool.Tool {
	return tool.NewTypedTool(name, description, func(tc *core.ToolContext, _ struct{}) (any, error) {
		if ts.c.TMDB == nil {
			return nil, notConfigured(name, "TMDB_API_KEY")
		}
		records, err := ts.c.TMDB.Trending(tc.Context(), media)
		if err != nil {
			return nil, err
		}
		for i := range records {
			records[i] = records[i].WithImageURLs()
		}
		if records == nil {
			records = []tmdb.Record{}
		}
		return map[string]any{"results": records}, nil
	})
}
