package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/marco/recofilms/internal/app"
	"github.com/marco/recofilms/internal/autocomplete"
	"github.com/marco/recofilms/internal/browse"
	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/export"
	"github.com/marco/recofilms/internal/gate"
	"github.com/marco/recofilms/internal/selection"
	"github.com/marco/recofilms/internal/watchlater"
)

const defaultInitMovies = 500

func pagesFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "pages",
		Aliases: []string{"p"},
		Usage:   "number of pages to load",
		Value:   1,
	}
}

func genreIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "genre",
		Aliases: []string{"g"},
		Usage:   "genre id, as listed by status --genres",
	}
}

// loadPages waits for page 1 of f, then requests up to pages-1 more.
func loadPages(f *browse.MovieFeed, pages int) error {
	f.Wait()
	for i := 1; i < pages && f.RequestMore(); i++ {
		f.Wait()
	}
	return f.State().Err
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check whether the backend is ready",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "genres", Usage: "also list the genres"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(s *session) error {
				state, _ := s.app.Gate.Check(ctx)
				fmt.Printf("Backend:  %s\n", s.cfg.API.BaseURL)
				fmt.Printf("State:    %s\n", state.Kind)
				switch state.Kind {
				case gate.Ready:
					fmt.Printf("Movies:   %d\n", state.Status.TotalMovies)
				case gate.NotReady:
					fmt.Printf("Reason:   %s\n", state.Reason)
				case gate.Unreachable:
					fmt.Printf("Error:    %v\n", state.Cause)
				}

				if cmd.Bool("genres") && state.Kind == gate.Ready {
					genres, err := s.catalog.GetGenres(ctx)
					if err != nil {
						return err
					}
					for _, g := range genres {
						fmt.Printf("  %-10s %s\n", g.ID, g.Name)
					}
				}
				if state.Kind == gate.Unreachable {
					return state.Err()
				}
				return nil
			})
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Build the backend index from popular and top rated movies",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "num-movies", Aliases: []string{"n"}, Value: defaultInitMovies, Usage: "number of movies to index"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(s *session) error {
				n := int(cmd.Int("num-movies"))
				fmt.Printf("Initializing with %d movies, this can take a while...\n", n)
				res, err := s.catalog.InitializeSystem(ctx, n)
				if err != nil {
					return err
				}
				fmt.Println(res.Message)
				// Genres and details may have changed with the new index.
				s.catalog.Purge()

				state, _ := s.app.Gate.Check(ctx)
				fmt.Printf("State: %s (%d movies)\n", state.Kind, state.Status.TotalMovies)
				return nil
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search movies by title",
		ArgsUsage: "<query>",
		Flags:     []cli.Flag{pagesFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if query == "" {
				return fmt.Errorf("a query is required")
			}
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				s.app.Home.Load(catalog.Filters{catalog.FilterQuery: query})
				if err := loadPages(s.app.Home, int(cmd.Int("pages"))); err != nil {
					return err
				}
				printMovies(os.Stdout, s.app.Home.State().Items)
				return nil
			})
		},
	}
}

func popularCommand() *cli.Command {
	return &cli.Command{
		Name:  "popular",
		Usage: "List popular movies",
		Flags: []cli.Flag{pagesFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				s.app.Home.Load(nil)
				if err := loadPages(s.app.Home, int(cmd.Int("pages"))); err != nil {
					return err
				}
				printMovies(os.Stdout, s.app.Home.State().Items)
				return nil
			})
		},
	}
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Discover movies by popularity, vote count or revenue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Value:   browse.SortPopularity,
				Usage:   strings.Join(browse.DiscoverSorts, ", "),
			},
			genreIDFlag(),
			pagesFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sortBy := cmd.String("sort")
			if !browse.ValidDiscoverSort(sortBy) {
				return fmt.Errorf("unknown sort %q, expected one of %s", sortBy, strings.Join(browse.DiscoverSorts, ", "))
			}
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				if err := s.app.ShowDiscover(sortBy, cmd.String("genre")); err != nil {
					return err
				}
				if err := loadPages(s.app.Discover, int(cmd.Int("pages"))); err != nil {
					return err
				}
				printMovies(os.Stdout, s.app.Discover.State().Items)
				return nil
			})
		},
	}
}

func topCommand() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "List the best rated movies",
		Flags: []cli.Flag{genreIDFlag(), pagesFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				if err := s.app.ShowTopRated(cmd.String("genre")); err != nil {
					return err
				}
				if err := loadPages(s.app.TopRated, int(cmd.Int("pages"))); err != nil {
					return err
				}
				printMovies(os.Stdout, s.app.TopRated.State().Items)
				return nil
			})
		},
	}
}

func actorCommand() *cli.Command {
	return &cli.Command{
		Name:      "actor",
		Usage:     "Show the filmography of an actor",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			genreIDFlag(),
			&cli.IntFlag{Name: "pick", Value: 1, Usage: "which suggestion to use when several actors match"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if len([]rune(name)) < autocomplete.DefaultMinLength {
				return fmt.Errorf("an actor name of at least %d characters is required", autocomplete.DefaultMinLength)
			}
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				people, err := s.catalog.SearchPerson(ctx, name)
				if err != nil {
					return catalog.Failed(catalog.OpSearchPerson, err)
				}
				actors := autocomplete.Actors(people, autocomplete.DefaultMaxSuggestions)
				if len(actors) == 0 {
					return fmt.Errorf("no actor matches %q", name)
				}

				pick := int(cmd.Int("pick"))
				if pick < 1 || pick > len(actors) {
					return fmt.Errorf("--pick must be between 1 and %d", len(actors))
				}
				if len(actors) > 1 {
					for i, a := range actors {
						marker := " "
						if i == pick-1 {
							marker = "*"
						}
						fmt.Printf("%s %d. %s\n", marker, i+1, a.Name)
					}
					fmt.Println()
				}

				if err := s.app.SelectActor(actors[pick-1]); err != nil {
					return err
				}
				if g := cmd.String("genre"); g != "" {
					s.app.Filmography.Wait()
					if err := s.app.ShowFilmography(g); err != nil {
						return err
					}
				}
				if err := loadPages(s.app.Filmography, 1); err != nil {
					return err
				}
				printMovies(os.Stdout, s.app.Filmography.State().Items)
				return nil
			})
		},
	}
}

func detailsCommand() *cli.Command {
	return &cli.Command{
		Name:      "details",
		Usage:     "Show the details of a movie",
		ArgsUsage: "<movie id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := strconv.Atoi(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("a numeric movie id is required")
			}
			return withSession(ctx, cmd, func(s *session) error {
				if err := s.ready(ctx); err != nil {
					return err
				}
				m, err := s.app.MovieDetails(ctx, id)
				if err != nil {
					return err
				}
				printDetails(os.Stdout, m)
				return nil
			})
		},
	}
}

// parseLiked parses "id" or "id:rating".
func parseLiked(arg string) (int, float64, error) {
	idPart, ratingPart, hasRating := strings.Cut(arg, ":")
	id, err := strconv.Atoi(idPart)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("invalid movie id %q", idPart)
	}
	if !hasRating {
		return id, selection.DefaultRating, nil
	}
	rating, err := strconv.ParseFloat(ratingPart, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid rating %q", ratingPart)
	}
	return id, rating, nil
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Usage:     "Recommend movies similar to the ones you liked",
		ArgsUsage: "<id[:rating]>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: catalog.FilterGenre, Usage: "genre name"},
			&cli.StringFlag{Name: catalog.FilterActor, Usage: "actor name"},
			&cli.StringFlag{Name: catalog.FilterYear, Usage: "minimum release year"},
			&cli.StringFlag{Name: "max-runtime", Usage: "maximum runtime in minutes"},
			&cli.StringFlag{Name: "min-rating", Usage: "minimum average vote"},
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "number of recommendations (1-50)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one liked movie is required")
			}

			s, err := openSession(ctx, cmd, app.Options{TopK: int(cmd.Int("top-k"))})
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ready(ctx); err != nil {
				return err
			}

			for _, arg := range cmd.Args().Slice() {
				id, rating, err := parseLiked(arg)
				if err != nil {
					return err
				}
				if !s.app.Selection.IsSelected(id) {
					s.app.Selection.Toggle(catalog.Movie{ID: id})
				}
				s.app.Selection.SetRating(id, rating)
			}

			s.app.SetFilter(catalog.FilterGenre, cmd.String(catalog.FilterGenre))
			s.app.SetFilter(catalog.FilterActor, cmd.String(catalog.FilterActor))
			s.app.SetFilter(catalog.FilterYear, cmd.String(catalog.FilterYear))
			s.app.SetFilter(catalog.FilterMaxRuntime, cmd.String("max-runtime"))
			s.app.SetFilter(catalog.FilterMinRating, cmd.String("min-rating"))

			if err := s.app.Recommend(ctx); err != nil {
				return err
			}
			printRecommendations(os.Stdout, s.app.Recommendations.Snapshot().Movies)
			return nil
		},
	}
}

func watchLaterCommand() *cli.Command {
	return &cli.Command{
		Name:    "watchlater",
		Aliases: []string{"wl"},
		Usage:   "Manage the watch later list",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the saved movies",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						printMovies(os.Stdout, s.app.WatchLater.Movies())
						return nil
					})
				},
			},
			{
				Name:      "toggle",
				Usage:     "Add a movie, or remove it if already saved",
				ArgsUsage: "<movie id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := strconv.Atoi(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("a numeric movie id is required")
					}
					return withSession(ctx, cmd, func(s *session) error {
						if s.app.WatchLater.Contains(id) {
							if _, err := s.app.WatchLater.Remove(id); err != nil {
								return err
							}
							fmt.Printf("Removed %d from watch later\n", id)
							return nil
						}

						if err := s.ready(ctx); err != nil {
							return err
						}
						m, err := s.app.MovieDetails(ctx, id)
						if err != nil {
							return err
						}
						if _, err := s.app.ToggleWatchLater(m); err != nil {
							return err
						}
						fmt.Printf("Added %q to watch later\n", m.Title)
						return nil
					})
				},
			},
			{
				Name:  "filter",
				Usage: "Filter the saved movies",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "actor", Usage: "part of an actor name"},
					&cli.IntFlag{Name: "max-runtime", Value: watchlater.DefaultMaxRuntime, Usage: "maximum runtime in minutes"},
					&cli.StringFlag{Name: "genre", Usage: "genre name"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						printMovies(os.Stdout, s.app.WatchLater.Filter(watchlater.Criteria{
							Actor:      cmd.String("actor"),
							MaxRuntime: int(cmd.Int("max-runtime")),
							Genre:      cmd.String("genre"),
						}))
						return nil
					})
				},
			},
			{
				Name:  "genres",
				Usage: "List the genres present in the list",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						for _, g := range s.app.WatchLater.Genres() {
							fmt.Println(g)
						}
						return nil
					})
				},
			},
			{
				Name:  "export",
				Usage: "Write the saved movies as Markdown notes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: "watchlater", Usage: "output directory"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						paths, err := export.NewMarkdownWriter(cmd.String("dir")).WriteAll(s.app.WatchLater.Movies())
						if err != nil {
							return err
						}
						fmt.Printf("Wrote %d notes to %s\n", len(paths), cmd.String("dir"))
						return nil
					})
				},
			},
			{
				Name:  "backfill",
				Usage: "Fetch missing runtime and cast for saved movies",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "concurrent fetches"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						if err := s.ready(ctx); err != nil {
							return err
						}
						results := s.app.WatchLater.Backfill(ctx, int(cmd.Int("workers")))
						var enriched, failed int
						for _, r := range results {
							switch {
							case r.Err != nil:
								failed++
								fmt.Printf("  %d: %v\n", r.ID, r.Err)
							case r.Enriched:
								enriched++
							}
						}
						fmt.Printf("Enriched %d of %d incomplete entries (%d failed)\n", enriched, len(results), failed)
						return nil
					})
				},
			},
		},
	}
}
