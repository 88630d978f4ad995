// Package pages holds the page model of the site: per page type schemas made
// of fixed fields and block streams, the page service that validates,
// versions and publishes pages, and the image library pages refer to.
//
// Author input arrives as a Draft whose field values are portable trees. A
// draft is decoded through the page type's Schema before anything is
// persisted, so a page is either saved completely valid or not at all.
// Validation errors are collected across top-level fields into
// ValidationErrors while each field reports only its first problem.
//
//	svc, err := pages.New(
//	    pages.WithRepository(memory.New()),
//	    pages.WithBlobStore("memory", memorystorage.New()),
//	)
//	page, err := svc.CreatePage(ctx, pages.CreatePageRequest{
//	    Type:  pages.PageTypeService,
//	    Draft: pages.Draft{Title: "Przegląd instalacji", Slug: "przeglad", Fields: fields},
//	})
package pages
