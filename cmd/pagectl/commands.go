package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/render"
	"github.com/ozeweb/oze-website/pkg/pages/scan"
	"github.com/ozeweb/oze-website/pkg/pages/schedule"
	"github.com/spf13/cobra"
)

// errInvalid marks a command that ran but found invalid content.
var errInvalid = errors.New("invalid content found")

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "schema [type]",
		Short: "Show page types and their fields",
		Long:  `List every page type with its panels and fields, or show one type. With --defaults print the editor prefill of the type instead.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := pages.SiteSchemas()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if defaults {
					return errors.New("--defaults needs a page type")
				}
				for _, t := range schemas.Types() {
					printSchema(out, schemas[t])
					fmt.Fprintln(out)
				}
				return nil
			}

			schema, err := schemas.Get(pages.PageType(args[0]))
			if err != nil {
				return err
			}
			if defaults {
				return writeJSON(out, schema.Defaults())
			}
			printSchema(out, schema)
			return nil
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the editor prefill values as JSON")

	return cmd
}

func printSchema(w io.Writer, s *pages.Schema) {
	fmt.Fprintf(w, "%s (%s)\n", s.Type, s.VerboseName)
	for _, panel := range s.Panels() {
		fmt.Fprintf(w, "  [%s]\n", panel)
		for _, f := range s.Fields {
			if f.Panel != panel {
				continue
			}
			switch {
			case f.IsStream():
				fmt.Fprintf(w, "    %-24s stream%s %v\n", f.Name, optionalMark(f.Optional), f.Stream.Names())
			default:
				fmt.Fprintf(w, "    %-24s %s%s\n", f.Name, f.Block.Kind, optionalMark(f.Block.Optional))
			}
		}
	}
}

func optionalMark(optional bool) string {
	if optional {
		return " (optional)"
	}
	return ""
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Validate page fixtures without saving them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := fixturePaths(args)
			if err != nil {
				return err
			}
			return validateFixtures(cmd.Context(), cmd.OutOrStdout(), pages.SiteSchemas(), paths)
		},
	}
	return cmd
}

// validateFixtures reports every invalid fixture and returns errInvalid when
// any fails.
func validateFixtures(ctx context.Context, w io.Writer, schemas pages.SchemaSet, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		fx, err := readFixture(path)
		if err == nil {
			var schema *pages.Schema
			if schema, err = schemas.Get(fx.Type); err == nil {
				_, err = schema.Decode(fx.Draft)
			}
		}
		if err == nil {
			fmt.Fprintf(w, "ok    %s\n", path)
			continue
		}
		failed++
		fmt.Fprintf(w, "FAIL  %s\n", path)
		printErrors(w, err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d fixtures", errInvalid, failed, len(paths))
	}
	return nil
}

func printErrors(w io.Writer, err error) {
	fieldErrs := pages.FieldErrors(err)
	if len(fieldErrs) == 0 {
		fmt.Fprintf(w, "      %v\n", err)
		return
	}
	for _, fe := range fieldErrs {
		fmt.Fprintf(w, "      %s: %s (%s)\n", fe.Path, fe.Message, fe.Code)
	}
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	var publish bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Create or update pages from fixtures",
		Long: `Import page fixtures. A fixture whose slug already exists updates that
page; otherwise a new page is created. With --watch the command keeps running
and re-imports fixtures as they change.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			paths, err := fixturePaths(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range orderFixtures(paths) {
				if !importFile(ctx, out, e.service, path, publish) {
					failed++
				}
			}

			if watch {
				fmt.Fprintf(out, "Watching %d path(s) for changes, press Ctrl+C to stop\n", len(args))
				return watchFixtures(ctx, args, func(batch []string) {
					for _, path := range orderFixtures(batch) {
						importFile(ctx, out, e.service, path, publish)
					}
				})
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d fixtures", errInvalid, failed, len(paths))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "publish imported pages")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-import changed fixtures")

	return cmd
}

func importFile(ctx context.Context, w io.Writer, svc pages.Service, path string, publish bool) bool {
	fx, err := readFixture(path)
	if err != nil {
		fmt.Fprintf(w, "FAIL  %s\n      %v\n", path, err)
		return false
	}
	res, err := importFixture(ctx, svc, fx, publish)
	if err != nil {
		fmt.Fprintf(w, "FAIL  %s\n", path)
		printErrors(w, err)
		return false
	}
	action := "updated"
	if res.Created {
		action = "created"
	}
	fmt.Fprintf(w, "%-7s %s %s (%s, %s)\n", action, res.Page.Type, res.Page.Slug, res.Page.ID, res.Page.Status)
	return true
}

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	var pageType string
	var status string
	var dryRun bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Revalidate stored pages against the current schemas",
		Long:  `Decode every stored page with the current schemas and report the pages that no longer validate, for example after a block definition changed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			out := cmd.OutOrStdout()
			proc := scan.NewRevalidateProcessor(e.service.Schemas())
			result, err := scan.New(e.repo).Scan(ctx, scan.ScanOptions{
				Filter:    pages.PageFilter{Type: pages.PageType(pageType), Status: pages.PageStatus(status)},
				Processor: proc,
				BatchSize: batchSize,
				DryRun:    dryRun,
				OnProgress: func(processed, total int64) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rScanned %d/%d", processed, total)
				},
			})
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			for _, f := range proc.Findings() {
				fmt.Fprintf(out, "%s %s %s (%s)\n", f.PageID, f.Type, f.Slug, f.Status)
				printErrors(out, f.Err)
			}
			fmt.Fprintf(out, "Found %d, valid %d, invalid %d\n", result.TotalFound, result.TotalProcessed, result.TotalFailed)
			if result.TotalFailed > 0 {
				return fmt.Errorf("%w: %d pages", errInvalid, result.TotalFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pageType, "type", "", "only scan pages of this type")
	cmd.Flags().StringVar(&status, "status", "", "only scan pages with this status")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the pages without decoding them")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "pages per progress report")

	return cmd
}

// NewPublishScheduledCommand creates the publish-scheduled command
func NewPublishScheduledCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish-scheduled",
		Short: "Publish every scheduled page that is due",
		Long:  `Publish due scheduled pages once, for running from an external scheduler instead of the server's built-in one.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			s, err := schedule.New(e.service, "@every 1m")
			if err != nil {
				return err
			}
			n, err := s.RunOnce(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d page(s)\n", n)
			return err
		},
	}
	return cmd
}

// NewRenderCommand creates the render command
func NewRenderCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "render <id|slug>",
		Short: "Render a page as HTML or Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			var page *pages.Page
			if id, perr := uuid.Parse(args[0]); perr == nil {
				page, err = e.service.GetPage(ctx, id)
			} else {
				page, err = e.service.GetPageBySlug(ctx, nil, args[0])
			}
			if err != nil {
				return err
			}

			renderer, err := render.New(e.service.Schemas(), render.WithImageResolver(e.service))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "html":
				body, err := renderer.RenderPage(ctx, page)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, body)
				return err
			case "markdown", "md":
				body, err := renderer.RenderMarkdown(ctx, page)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, body)
				return err
			case "json":
				return writeJSON(out, e.service.Schemas()[page.Type].Encode(page))
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: html, markdown or json")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
