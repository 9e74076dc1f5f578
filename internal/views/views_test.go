package views

import (
	"strings"
	"testing"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/models"
)

var testRoutes = []RouteLink{
	{Method: "GET", Path: "/", Controller: "home.Index", Description: "トップページ"},
	{Method: "GET", Path: "/users", Controller: "users.List", Description: "ユーザー一覧"},
}

func TestLayout(t *testing.T) {
	page, err := Layout("テスト <title>", "<p>本文</p>")
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="ja">`,
		"<title>テスト &lt;title&gt;</title>",
		"<p>本文</p>",
		`<a href="/api/users">📊 API</a>`,
		".code-block",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("layout missing %q", want)
		}
	}
	for _, link := range Navigation {
		if !strings.Contains(page, `href="`+link.Path+`"`) {
			t.Errorf("navigation missing %s", link.Path)
		}
	}
}

func TestUsers(t *testing.T) {
	got, err := Users(models.DefaultUsers())
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range models.DefaultUsers() {
		for _, field := range []string{u.Name, u.Email, u.Role, u.Department} {
			if !strings.Contains(string(got), field) {
				t.Errorf("users page missing %q", field)
			}
		}
	}
}

func TestUsers_EscapesFields(t *testing.T) {
	got, err := Users([]models.User{{ID: 1, Name: "<script>alert(1)</script>"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(got), "<script>alert(1)") {
		t.Error("user fields must be HTML-escaped")
	}
}

func TestProducts(t *testing.T) {
	got, err := Products(models.DefaultProducts())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"¥120,000", "¥2,500", "¥8,000", "¥35,000", "¥5,500", "Webカメラ"} {
		if !strings.Contains(string(got), want) {
			t.Errorf("products page missing %q", want)
		}
	}
}

func TestFormatYen(t *testing.T) {
	tests := []struct {
		price int
		want  string
	}{
		{0, "¥0"},
		{999, "¥999"},
		{1000, "¥1,000"},
		{120000, "¥120,000"},
		{1234567, "¥1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatYen(tt.price); got != tt.want {
			t.Errorf("FormatYen(%d) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestFormatServerTime(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 5, 1, 9, 5, 3, 0, tokyo), "2024/5/1 9:05:03"},
		{time.Date(2024, 12, 31, 23, 59, 59, 0, tokyo), "2024/12/31 23:59:59"},
		{time.Date(2025, 1, 2, 0, 0, 0, 0, tokyo), "2025/1/2 0:00:00"},
	}
	for _, tt := range tests {
		if got := FormatServerTime(tt.in); got != tt.want {
			t.Errorf("FormatServerTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSSR(t *testing.T) {
	got, err := SSR(models.DefaultUsers(), "2024/5/1 9:05:03")
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	if !strings.Contains(s, "<strong>2024/5/1 9:05:03</strong>") {
		t.Error("server time not rendered")
	}
	if !strings.Contains(s, "sato@example.com") {
		t.Error("user rows not rendered")
	}
	if strings.Contains(s, "開発部") {
		t.Error("SSR table has no department column")
	}
}

func TestCSR(t *testing.T) {
	got, err := CSR()
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	if !strings.Contains(s, "fetch('/api/users')") {
		t.Error("CSR page should fetch /api/users")
	}
	if !strings.Contains(s, `id="user-list"`) {
		t.Error("CSR page should have a user-list container")
	}
	if strings.Contains(s, "田中太郎") {
		t.Error("CSR page must not embed user data")
	}
}

func TestHome(t *testing.T) {
	got, err := Home(testRoutes)
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	for _, want := range []string{"users.List", `<a href="/users">/users</a>`, "ユーザー一覧"} {
		if !strings.Contains(s, want) {
			t.Errorf("home page missing %q", want)
		}
	}
}

func TestNotFound(t *testing.T) {
	got, err := NotFound(`/nope"><b>`, testRoutes)
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	if !strings.Contains(s, "404 - ページが見つかりません") {
		t.Error("missing 404 heading")
	}
	if !strings.Contains(s, "リクエストされたURL: /nope&#34;&gt;&lt;b&gt;") {
		t.Errorf("requested URL not escaped:\n%s", s)
	}
	if !strings.Contains(s, "<td>トップページ</td>") {
		t.Error("route table missing")
	}
}
