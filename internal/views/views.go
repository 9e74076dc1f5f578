// Package views renders the demo's HTML. Page templates produce fragments that
// Layout wraps in the shared document with stylesheet and navigation.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var yenPrinter = message.NewPrinter(language.Japanese)

var pages = template.Must(template.New("views").Funcs(template.FuncMap{
	"yen": FormatYen,
}).ParseFS(templateFS, "templates/*.html"))

// NavLink is an entry in the page header
type NavLink struct {
	Path  string
	Label string
}

// Navigation is the header shown on every page.
var Navigation = []NavLink{
	{Path: "/", Label: "🏠 トップ"},
	{Path: "/users", Label: "👥 ユーザー"},
	{Path: "/products", Label: "📦 商品"},
	{Path: "/ssr", Label: "📄 SSRデモ"},
	{Path: "/csr", Label: "⚡ CSRデモ"},
	{Path: "/api/users", Label: "📊 API"},
}

// RouteLink describes a route for the home and 404 pages
type RouteLink struct {
	Method      string
	Path        string
	Controller  string
	Description string
}

// Layout wraps a page fragment in the full HTML document.
func Layout(title string, content template.HTML) (string, error) {
	data := struct {
		Title   string
		Nav     []NavLink
		Content template.HTML
	}{title, Navigation, content}

	var b strings.Builder
	if err := pages.ExecuteTemplate(&b, "layout", data); err != nil {
		return "", fmt.Errorf("rendering layout: %w", err)
	}
	return b.String(), nil
}

// Home renders the landing page fragment.
func Home(routes []RouteLink) (template.HTML, error) {
	return render("home", struct{ Routes []RouteLink }{routes})
}

// Users renders the user table fragment.
func Users(users []models.User) (template.HTML, error) {
	return render("users", users)
}

// Products renders the product table fragment with yen prices.
func Products(products []models.Product) (template.HTML, error) {
	return render("products", products)
}

// SSR renders the server-side rendering demo. serverTime is shown verbatim.
func SSR(users []models.User, serverTime string) (template.HTML, error) {
	return render("ssr", struct {
		Users      []models.User
		ServerTime string
	}{users, serverTime})
}

// CSR renders the client-side rendering demo. The table is filled in by the
// browser from /api/users.
func CSR() (template.HTML, error) {
	return render("csr", nil)
}

// NotFound renders the 404 fragment for the requested path.
func NotFound(path string, routes []RouteLink) (template.HTML, error) {
	return render("notfound", struct {
		Path   string
		Routes []RouteLink
	}{path, routes})
}

func render(name string, data any) (template.HTML, error) {
	var b strings.Builder
	if err := pages.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	// Output of html/template is already escaped.
	return template.HTML(b.String()), nil
}

// FormatYen formats a price with a yen sign and thousands separators.
func FormatYen(price int) string {
	return yenPrinter.Sprintf("¥%d", price)
}

// FormatServerTime formats t the way Japanese locale clocks show it,
// e.g. 2024/5/1 9:05:03.
func FormatServerTime(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}
