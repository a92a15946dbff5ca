package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/pagination"
	"github.com/Bahjat/linkboard/internal/view"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of analysis records",
	Example: `  linkboard list --amount 25 --page 2
  linkboard list --filter status=checked --filter headings_count.h1=2 --sort title --desc
  linkboard list --search login`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, client, err := setup(cmd)
		if err != nil {
			return err
		}

		state, err := listState(cmd)
		if err != nil {
			return err
		}

		page, err := client.FetchPage(cmd.Context(), state.Page, state.PageSize)
		if err != nil {
			return err
		}

		rows := view.Apply(view.Fields, page.Links, state)
		return printTable(cmd.OutOrStdout(), rows, state.Page, page.Pagination.TotalPages)
	},
}

func init() {
	listCmd.Flags().Int("page", 1, "Page to fetch")
	listCmd.Flags().Int("amount", view.DefaultPageSize, fmt.Sprintf("Records per page, one of %v", view.PageSizes))
	listCmd.Flags().StringArray("filter", nil, "Column filter as field=pattern, repeatable")
	listCmd.Flags().String("search", "", "Search across the main columns")
	listCmd.Flags().String("sort", "", "Field to sort the page by")
	listCmd.Flags().Bool("desc", false, "Sort descending")
}

// listState turns the list flags into a view state.
func listState(cmd *cobra.Command) (view.State, error) {
	flags := cmd.Flags()
	amount, _ := flags.GetInt("amount")
	page, _ := flags.GetInt("page")
	filters, _ := flags.GetStringArray("filter")
	search, _ := flags.GetString("search")
	sortField, _ := flags.GetString("sort")
	desc, _ := flags.GetBool("desc")

	state, err := view.DefaultState().WithPageSize(amount)
	if err != nil {
		return view.State{}, err
	}
	for _, f := range filters {
		path, pattern, ok := strings.Cut(f, "=")
		if !ok || path == "" {
			return view.State{}, fmt.Errorf("invalid filter %q, want field=pattern", f)
		}
		state = state.WithFilter(path, pattern)
	}
	state = state.WithSearch(search).WithPage(page)

	if sortField != "" {
		state = state.WithSort(sortField)
		if desc {
			state = state.WithSort(sortField)
		}
	}
	return state, nil
}

func printTable(out io.Writer, rows []model.Link, current, total int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tURL\tTITLE\tHTML\tH1-H6\tINT\tEXT\tINACC\tLOGIN\tACTION")
	for _, l := range rows {
		h := l.HeadingsCount
		action := lifecycle.ActionFor(l.Status)
		name := action.Name
		if action.Disabled {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d/%d/%d/%d/%d/%d\t%d\t%d\t%d\t%t\t%s\n",
			l.ID, l.Status, l.URL, l.Title, l.HTMLVersion,
			h.H1, h.H2, h.H3, h.H4, h.H5, h.H6,
			l.InternalLinks, l.ExternalLinks, l.InaccessibleLinks, l.HasLoginForm, name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\npage %d of %d  %s\n", current, total, pageBar(current, total))
	return err
}

func pageBar(current, total int) string {
	var b strings.Builder
	for _, it := range pagination.Pages(current, total) {
		switch {
		case it.Ellipsis:
			b.WriteString(" …")
		case it.Page == current:
			fmt.Fprintf(&b, " [%d]", it.Page)
		default:
			fmt.Fprintf(&b, " %d", it.Page)
		}
	}
	return strings.TrimSpace(b.String())
}
