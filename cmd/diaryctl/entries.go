package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

func init() {
	// create
	var date, title, content, location string
	var photos, tagList []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a diary entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"date":    date,
				"title":   title,
				"content": content,
			}
			if len(photos) > 0 {
				payload["photoIds"] = photos
			}
			if len(tagList) > 0 {
				payload["tags"] = tagList
			}
			if location != "" {
				payload["location"] = location
			}

			resp, err := newClient().R().SetBody(payload).Post("/api/entries")
			if err := expectStatus(resp, err, 201); err != nil {
				return err
			}
			printJSON(resp.Body())
			return nil
		},
	}
	createCmd.Flags().StringVarP(&date, "date", "d", "", "Entry date, YYYY-MM-DD (required)")
	createCmd.Flags().StringVarP(&title, "title", "t", "", "Title")
	createCmd.Flags().StringVarP(&content, "content", "c", "", "Body text")
	createCmd.Flags().StringArrayVarP(&photos, "photo", "p", nil, "Photo id (repeatable)")
	createCmd.Flags().StringArrayVar(&tagList, "tag", nil, "Tag (repeatable)")
	createCmd.Flags().StringVarP(&location, "location", "l", "", "Location")
	_ = createCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(createCmd)

	// list
	var search, from, to string
	var filterTags []string
	var desc bool
	var offset, limit int
	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if search != "" {
				params.Set("search", search)
			}
			for _, tg := range filterTags {
				params.Add("tags", tg)
			}
			if from != "" {
				params.Set("from", from)
			}
			if to != "" {
				params.Set("to", to)
			}
			if !desc {
				params.Set("descending", "false")
			}
			if cmd.Flags().Changed("offset") {
				params.Set("offset", strconv.Itoa(offset))
			}
			if cmd.Flags().Changed("limit") {
				params.Set("limit", strconv.Itoa(limit))
			}

			resp, err := newClient().R().SetQueryParamsFromValues(params).Get("/api/entries")
			if err := expectStatus(resp, err, 200); err != nil {
				return err
			}
			if asJSON {
				printJSON(resp.Body())
				return nil
			}

			var result struct {
				Entries []model.Entry `json:"entries"`
				Count   int           `json:"count"`
			}
			if err := json.Unmarshal(resp.Body(), &result); err != nil {
				return err
			}
			printEntryTable(result.Entries)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&search, "search", "s", "", "Free-text search")
	listCmd.Flags().StringArrayVar(&filterTags, "tag", nil, "Require tag (repeatable)")
	listCmd.Flags().StringVar(&from, "from", "", "Earliest date, inclusive")
	listCmd.Flags().StringVar(&to, "to", "", "Latest date, inclusive")
	listCmd.Flags().BoolVar(&desc, "desc", true, "Newest first")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Matches to skip")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON instead of a table")
	rootCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ENTRY_ID",
		Short: "Get one entry by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().R().Get("/api/entries/" + args[0])
			if err := expectStatus(resp, err, 200); err != nil {
				return err
			}
			printJSON(resp.Body())
			return nil
		},
	}
	rootCmd.AddCommand(getCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete ENTRY_ID",
		Short: "Delete an entry (succeeds even if already gone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().R().Delete("/api/entries/" + args[0])
			if err := expectStatus(resp, err, 204); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
	rootCmd.AddCommand(deleteCmd)

	// past-photo
	var ppPhoto, ppDate, ppTitle, ppContent, ppLocation string
	pastPhotoCmd := &cobra.Command{
		Use:   "past-photo",
		Short: "Create a backdated entry from an old photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"photoId":   ppPhoto,
				"photoDate": ppDate,
				"title":     ppTitle,
				"content":   ppContent,
			}
			if ppLocation != "" {
				payload["location"] = ppLocation
			}

			resp, err := newClient().R().SetBody(payload).Post("/api/entries/past-photo")
			if err := expectStatus(resp, err, 201); err != nil {
				return err
			}
			printJSON(resp.Body())
			return nil
		},
	}
	pastPhotoCmd.Flags().StringVarP(&ppPhoto, "photo", "p", "", "Photo id (required)")
	pastPhotoCmd.Flags().StringVarP(&ppDate, "date", "d", "", "Photo capture date, YYYY-MM-DD (required)")
	pastPhotoCmd.Flags().StringVarP(&ppTitle, "title", "t", "", "Title")
	pastPhotoCmd.Flags().StringVarP(&ppContent, "content", "c", "", "Body text")
	pastPhotoCmd.Flags().StringVarP(&ppLocation, "location", "l", "", "Location")
	_ = pastPhotoCmd.MarkFlagRequired("photo")
	_ = pastPhotoCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(pastPhotoCmd)

	// rebuild
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the server's entry index from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().R().Post("/api/index/rebuild")
			if err := expectStatus(resp, err, 204); err != nil {
				return err
			}
			fmt.Println("index rebuilt")
			return nil
		},
	}
	rootCmd.AddCommand(rebuildCmd)
}

func printEntryTable(entries []model.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tID\tTITLE\tPHOTOS\tTAGS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Date.Format("2006-01-02"), e.ID, e.Title, len(e.PhotoIDs),
			strings.Join(e.AllTags(), ","))
	}
	_ = w.Flush()
	fmt.Printf("%d entries\n", len(entries))
}
