package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/listing"
	"staffdesk/internal/client/services"
	"staffdesk/internal/models"
)

func parseOrder(s string) (listing.Order, error) {
	switch strings.ToLower(s) {
	case "asc":
		return listing.Asc, nil
	case "desc", "":
		return listing.Desc, nil
	}
	return 0, fmt.Errorf("order must be asc or desc, got %q", s)
}

func checkSortKey(key string, allowed []string) error {
	if key == "" {
		return nil
	}
	for _, k := range allowed {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("sort must be one of %s", strings.Join(allowed, ", "))
}

func ownerName(e *models.Employee) string {
	if e == nil || e.User.Name == "" {
		return "-"
	}
	return e.User.Name
}

var documentHeaders = []string{"ID", "NAME", "TYPE", "EMPLOYEE", "STATUS", "UPLOADED", "SIZE"}

func documentRows(docs []models.Document) [][]string {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{d.ID, d.Name, d.Type, ownerName(d.Employee), d.VerificationStatus, ts(d.CreatedAt), strconv.FormatInt(d.Size, 10)})
	}
	return rows
}

func documentView(d models.Document) view {
	return view{data: d, rows: [][]string{
		{"ID", d.ID},
		{"Name", d.Name},
		{"Type", d.Type},
		{"Employee", ownerName(d.Employee)},
		{"File", d.FileName + " (" + orDash(d.MimeType) + ", " + strconv.FormatInt(d.Size, 10) + " bytes)"},
		{"URL", d.FileURL},
		{"Status", d.VerificationStatus},
		{"Uploaded", ts(d.CreatedAt)},
		{"Verified", optTS(d.VerifiedAt)},
	}}
}

func newDocumentsCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:         "documents",
		Aliases:     []string{"document", "docs"},
		Short:       "Upload, list and verify documents",
		Annotations: routed(gate.Documents),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var q listing.DocumentQuery
	var employeeID, order string
	list := &cobra.Command{
		Use:         "list",
		Short:       "List documents with local filtering and sorting",
		Annotations: routed(gate.Documents),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSortKey(q.SortBy, listing.DocumentSortKeys()); err != nil {
				return err
			}
			o, err := parseOrder(order)
			if err != nil {
				return err
			}
			q.Order = o
			env, err := a.svc.Documents.List(cmd.Context(), services.DocumentFilter{EmployeeID: employeeID})
			if err != nil {
				return err
			}
			docs := listing.Documents(env.Data, q)
			return a.render(cmd.OutOrStdout(), view{data: docs, headers: documentHeaders, rows: documentRows(docs)})
		},
	}
	lf := list.Flags()
	lf.StringVar(&q.Status, "status", listing.All, "pending, verified, rejected or all")
	lf.StringVar(&q.Type, "type", listing.All, "document type or all")
	lf.StringVar(&q.EmployeeName, "employee", "", "employee name contains (case-insensitive)")
	lf.StringVar(&employeeID, "employee-id", "", "only this employee's documents (admin)")
	lf.StringVar(&q.SortBy, "sort", "", "sort by "+strings.Join(listing.DocumentSortKeys(), ", ")+" (default newest upload first)")
	lf.StringVar(&order, "order", "desc", "asc or desc")

	get := &cobra.Command{
		Use:         "get <id>",
		Short:       "Show one document",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Documents),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Documents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), documentView(env.Data))
		},
	}

	var up services.DocumentUpload
	var path string
	upload := &cobra.Command{
		Use:         "upload",
		Short:       "Upload a document for verification",
		Annotations: routed(gate.Documents),
		Example:     `  staffctl documents upload --file passport.pdf --type ID --name Passport`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				defer f.Close()
				up.FileName, up.Content = filepath.Base(path), f
			}
			env, err := a.svc.Documents.Upload(cmd.Context(), up)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Uploaded %s, awaiting verification", env.Data.Name)
			return a.render(cmd.OutOrStdout(), documentView(env.Data))
		},
	}
	upf := upload.Flags()
	upf.StringVar(&path, "file", "", "file to upload")
	upf.StringVar(&up.Type, "type", "", "document type, e.g. ID, Contract")
	upf.StringVar(&up.Name, "name", "", "display name (default the file name)")
	upf.StringVar(&up.EmployeeID, "employee-id", "", "upload on behalf of an employee (admin)")

	verify := &cobra.Command{
		Use:         "verify <id> <verified|rejected>",
		Short:       "Mark a document verified or rejected (admin)",
		Args:        cobra.ExactArgs(2),
		Annotations: adminAction(gate.Documents),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Documents.Verify(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Document %s %s", env.Data.Name, env.Data.VerificationStatus)
			return nil
		},
	}

	del := &cobra.Command{
		Use:         "delete <id>",
		Short:       "Delete a document and its file",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Documents),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Documents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Document deleted")
			return nil
		},
	}

	root.AddCommand(list, get, upload, verify, del)
	return root
}
