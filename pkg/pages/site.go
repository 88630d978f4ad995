package pages

import (
	"fmt"
	"sort"

	"github.com/ozeweb/oze-website/pkg/blocks"
)

// SchemaSet maps every page type to its schema. It is built once at startup
// and read concurrently afterwards.
type SchemaSet map[PageType]*Schema

// Get returns the schema of a page type.
func (s SchemaSet) Get(t PageType) (*Schema, error) {
	schema, ok := s[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPageType, t)
	}
	return schema, nil
}

// Types returns the page types of the set in a stable order.
func (s SchemaSet) Types() []PageType {
	out := make([]PageType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	order := make(map[PageType]int)
	for i, t := range PageTypes() {
		order[t] = i + 1
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := order[out[i]], order[out[j]]
		if oi != oj {
			if oi == 0 {
				return false
			}
			if oj == 0 {
				return true
			}
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}

// SiteSchemas builds the schemas of every page type of the site.
func SiteSchemas() SchemaSet {
	set := make(SchemaSet)
	for _, t := range PageTypes() {
		set[t] = siteSchema(t)
	}
	return set
}

func siteSchema(t PageType) *Schema {
	switch t {
	case PageTypeHome:
		return homeSchema()
	case PageTypeService:
		return serviceSchema()
	case PageTypeContact:
		return contactSchema()
	}
	panic(fmt.Sprintf("pages: no schema for page type %q", t))
}

// Panel headings.
const (
	PanelContent = "Treść"
	PanelHero    = "Sekcja Hero"
	PanelWhyUs   = "Sekcja Dlaczego My"
	PanelService = "Sekcja Usługi"
	PanelPartner = "Sekcja Partnerzy"
	PanelCompany = "Dane firmy"
	PanelEmail   = "Ustawienia email"
)

func homeSchema() *Schema {
	whyUs := blocks.NewRegistryBuilder().MustRegister("item", blocks.Struct("item",
		blocks.Char("icon", blocks.MaxLength(50), blocks.HelpText("Heroicons name (e.g., 'shield-check', 'clock', 'currency-dollar')")),
		blocks.Char("title", blocks.MaxLength(100)),
		blocks.Text("description"),
	).With(blocks.Icon("tick"), blocks.Label("Dlaczego my - element"))).Build()

	partners := blocks.NewRegistryBuilder().MustRegister("partner", blocks.Struct("partner",
		blocks.Char("name", blocks.MaxLength(100)),
		blocks.Image("logo", blocks.Optional()),
		blocks.URL("website", blocks.Optional()),
	).With(blocks.Label("Logo partnera"))).Build()

	return &Schema{
		Type:        PageTypeHome,
		VerboseName: PageTypeHome.VerboseName(),
		Fields: []FieldDescriptor{
			Field(PanelHero, blocks.Char("hero_title", blocks.MaxLength(200), blocks.Default("Profesjonalne przeglądy instalacji fotowoltaicznych"))),
			Field(PanelHero, blocks.Char("hero_subtitle", blocks.MaxLength(300), blocks.Default("Zapewniamy bezpieczeństwo i maksymalną wydajność Twojej instalacji PV"))),
			Field(PanelHero, blocks.Image("hero_image", blocks.Optional(), blocks.HelpText("Zdjęcie w tle sekcji hero"))),
			Field(PanelHero, blocks.Char("hero_cta_text", blocks.MaxLength(50), blocks.Default("Zamów przegląd"))),
			Field(PanelHero, blocks.PageLink("hero_cta_link", blocks.Optional(), blocks.HelpText("Link do strony po kliknięciu CTA"))),
			Field(PanelWhyUs, blocks.Char("why_us_title", blocks.MaxLength(100), blocks.Default("Dlaczego my?"))),
			StreamField(PanelWhyUs, "why_us_items", whyUs, false),
			Field(PanelService, blocks.Char("services_title", blocks.MaxLength(100), blocks.Default("Nasze usługi"))),
			Field(PanelService, blocks.Char("services_subtitle", blocks.MaxLength(200), blocks.Default("Kompleksowa obsługa instalacji OZE"))),
			Field(PanelPartner, blocks.Char("partners_title", blocks.MaxLength(100), blocks.Default("Zaufali nam"))),
			StreamField(PanelPartner, "partner_logos", partners, false),
		},
	}
}

// ServiceContent builds the block registry of a service page's content
// stream.
func ServiceContent() *blocks.Registry {
	pricingItem := blocks.Struct("item",
		blocks.Char("name", blocks.MaxLength(100), blocks.Label("Nazwa usługi")),
		blocks.Char("price", blocks.MaxLength(50), blocks.Label("Cena")),
		blocks.Text("description", blocks.Optional(), blocks.Label("Opis")),
	).With(blocks.Icon("tag"), blocks.Label("Pozycja cennika"))

	faqItem := blocks.Struct("item",
		blocks.Char("question", blocks.MaxLength(200), blocks.Label("Pytanie")),
		blocks.RichText("answer", blocks.Label("Odpowiedź")),
	).With(blocks.Icon("help"), blocks.Label("FAQ"))

	return blocks.NewRegistryBuilder().
		MustRegister("heading", blocks.Char("heading", blocks.MaxLength(200), blocks.Icon("title"), blocks.Template("heading"))).
		MustRegister("paragraph", blocks.RichText("paragraph", blocks.Icon("doc-full"), blocks.Template("paragraph"))).
		MustRegister("image", blocks.Image("image", blocks.Icon("image"), blocks.Template("image"))).
		MustRegister("pricing", blocks.Struct("pricing",
			blocks.Char("title", blocks.MaxLength(100), blocks.Default("Cennik")),
			blocks.List("items", pricingItem),
		).With(blocks.Icon("table"), blocks.Label("Cennik"), blocks.Template("pricing_table"))).
		MustRegister("gallery", blocks.Struct("gallery",
			blocks.Char("title", blocks.MaxLength(100), blocks.Default("Galeria")),
			blocks.List("images", blocks.Image("image")),
		).With(blocks.Icon("image"), blocks.Label("Galeria"), blocks.Template("gallery"))).
		MustRegister("faq", blocks.Struct("faq",
			blocks.Char("title", blocks.MaxLength(100), blocks.Default("Często zadawane pytania")),
			blocks.List("items", faqItem),
		).With(blocks.Icon("help"), blocks.Label("Sekcja FAQ"), blocks.Template("faq"))).
		Build()
}

func serviceSchema() *Schema {
	return &Schema{
		Type:        PageTypeService,
		VerboseName: PageTypeService.VerboseName(),
		Fields: []FieldDescriptor{
			Field(PanelContent, blocks.Char("icon", blocks.MaxLength(50), blocks.Default("sun"), blocks.HelpText("Heroicons name (e.g., 'sun', 'bolt', 'wrench')"))),
			Field(PanelContent, blocks.Char("short_description", blocks.MaxLength(200), blocks.HelpText("Krótki opis wyświetlany na stronie głównej"))),
			Field(PanelContent, blocks.Image("featured_image", blocks.Optional(), blocks.HelpText("Główne zdjęcie usługi"))),
			StreamField(PanelContent, "content", ServiceContent(), false),
		},
	}
}

// Form field types offered by the contact form builder.
var FormFieldTypes = []string{
	"singleline", "multiline", "email", "number", "url", "checkbox",
	"checkboxes", "dropdown", "multiselect", "radio", "date", "datetime", "hidden",
}

func contactSchema() *Schema {
	formFields := blocks.NewRegistryBuilder().MustRegister("field", blocks.Struct("field",
		blocks.Char("label", blocks.MaxLength(255)),
		blocks.Choice("field_type", FormFieldTypes),
		blocks.Boolean("required", blocks.Optional()),
		blocks.Text("choices", blocks.Optional(), blocks.HelpText("Oddzielone przecinkami")),
		blocks.Text("default_value", blocks.Optional()),
		blocks.Char("help_text", blocks.MaxLength(255), blocks.Optional()),
	).With(blocks.Label("Pola formularza"))).Build()

	return &Schema{
		Type:        PageTypeContact,
		VerboseName: PageTypeContact.VerboseName(),
		Fields: []FieldDescriptor{
			Field(PanelContent, blocks.RichText("intro", blocks.Optional(), blocks.HelpText("Tekst wprowadzający nad formularzem"))),
			Field(PanelContent, blocks.RichText("thank_you_text", blocks.Optional(), blocks.HelpText("Tekst wyświetlany po wysłaniu formularza"))),
			Field(PanelCompany, blocks.Char("company_name", blocks.MaxLength(200), blocks.Optional())),
			Field(PanelCompany, blocks.Text("company_address", blocks.Optional())),
			Field(PanelCompany, blocks.Char("company_phone", blocks.MaxLength(20), blocks.Optional())),
			Field(PanelCompany, blocks.Email("company_email", blocks.Optional())),
			Field(PanelCompany, blocks.Char("company_nip", blocks.MaxLength(15), blocks.Optional(), blocks.Label("NIP"))),
			Field(PanelCompany, blocks.Text("working_hours", blocks.Optional(), blocks.HelpText("Godziny pracy, np. 'Pon-Pt: 8:00-16:00'"))),
			Field(PanelContent, blocks.URL("map_embed_url", blocks.Optional(), blocks.HelpText("URL do osadzenia mapy Google Maps (iframe src)"))),
			Field(PanelEmail, blocks.EmailList("to_address", blocks.MaxLength(255), blocks.Optional(), blocks.HelpText("Adresy oddzielone przecinkami"))),
			Field(PanelEmail, blocks.Email("from_address", blocks.Optional())),
			Field(PanelEmail, blocks.Char("subject", blocks.MaxLength(255), blocks.Optional())),
			StreamField(PanelContent, "form_fields", formFields, false),
		},
	}
}
