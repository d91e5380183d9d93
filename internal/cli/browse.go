package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dino-catalog/pkg/browse"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

const browseHelp = `Commands:
  n, next            next page
  p, prev            previous page
  page <n>           jump to page n
  search <text>      filter by name or description ("search" alone clears)
  diet <value>       filter by diet ("diet" alone clears)
  loco <value>       filter by locomotion
  era <value>        filter by period
  clear              drop every filter
  r, refresh         reload the current page
  h, help            show this help
  q, quit            leave`

// renderer prints each settled view once.
type renderer struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (r *renderer) render(v browse.View) {
	if v.Loading || v.Paginating || v.Phase == browse.PhaseDebouncing || v.Phase == browse.PhaseFetching {
		return
	}

	var b strings.Builder
	if v.Err != "" {
		fmt.Fprintf(&b, "Error: %s (type 'refresh' to retry)\n", v.Err)
	} else if v.Page > 0 {
		if len(v.Items) == 0 {
			fmt.Fprintln(&b, "No dinosaurs match these filters.")
		} else {
			printTable(&b, v.Items)
		}
		p := catalog.NewPagination(v.Page, v.Limit, v.TotalCount)
		fmt.Fprintln(&b, pageFooter(p, v.Filters))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := b.String(); s != "" && s != r.last {
		r.last = s
		io.WriteString(r.out, s)
	}
}

// printf writes a message between renders.
func (r *renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// forget makes the next view print even if it is unchanged.
func (r *renderer) forget() {
	r.mu.Lock()
	r.last = ""
	r.mu.Unlock()
}

func newBrowseCmd(a *app) *cobra.Command {
	var ff filterFlags
	var pageSize int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through the catalog interactively",
		Long:  "browse reads commands from standard input and keeps the pages it has seen cached for five minutes. Neighbouring pages are prefetched.\n\n" + browseHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := browse.DefaultConfig()
			cfg.PageSize = pageSize
			cfg.TTL = a.cfg.CacheTTL

			s := browse.NewSession(a.client, cfg)
			defer s.Close()

			r := &renderer{out: cmd.OutOrStdout()}
			s.OnChange(r.render)

			f := ff.filters()
			s.SetSearch(f.Search)
			s.SetDiet(f.Diet)
			s.SetLocomotion(f.LocomotionType)
			s.SetEra(f.Era)
			s.Load()
			s.Wait()

			return runBrowse(s, cmd.InOrStdin(), r)
		},
	}

	ff.register(cmd)
	cmd.Flags().IntVarP(&pageSize, "limit", "l", catalog.DefaultPageSize, "Records per page")
	return cmd
}

// runBrowse drives the session from line commands until quit or EOF.
// Page moves wait for their page; filter edits are debounced.
func runBrowse(s *browse.Session, in io.Reader, r *renderer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		verb, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(verb) {
		case "":
		case "n", "next":
			s.NextPage()
			s.Wait()
		case "p", "prev":
			s.PrevPage()
			s.Wait()
		case "page":
			n, err := strconv.Atoi(arg)
			if err != nil {
				r.printf("invalid page %q\n", arg)
				continue
			}
			s.SetPage(n)
			s.Wait()
		case "search":
			s.SetSearch(arg)
		case "diet":
			s.SetDiet(arg)
		case "loco", "locomotion":
			s.SetLocomotion(arg)
		case "era", "period":
			s.SetEra(arg)
		case "clear":
			s.SetSearch("")
			s.SetDiet("")
			s.SetLocomotion("")
			s.SetEra("")
		case "r", "refresh":
			r.forget()
			s.Refresh()
			s.Wait()
		case "h", "help":
			r.printf("%s\n", browseHelp)
		case "q", "quit", "exit":
			s.Flush()
			s.Wait()
			return nil
		default:
			r.printf("unknown command %q (type 'help')\n", verb)
		}
	}

	s.Flush()
	s.Wait()
	return sc.Err()
}
