package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeSheetServer struct {
	server   *httptest.Server
	requests atomic.Int32
	lastPath atomic.Value
}

func newFakeSheetServer(t *testing.T, status int, values [][]any) *fakeSheetServer {
	t.Helper()

	fake := &fakeSheetServer{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.requests.Add(1)
		fake.lastPath.Store(r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          DefaultRange,
			"majorDimension": "ROWS",
			"values":         values,
		})
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

func newTestDirectory(t *testing.T, fake *fakeSheetServer) *Directory {
	t.Helper()

	dir, err := New(context.Background(), Config{SpreadsheetID: "sheet-123"}, nil,
		option.WithEndpoint(fake.server.URL+"/"),
		option.WithHTTPClient(fake.server.Client()),
	)
	require.NoError(t, err)
	return dir
}

var sheetRows = [][]any{
	{"1", "Café Test", "Avenue Mohammed V, Casablanca", "+212 123456789", "Un café test", "https://a/1.jpg,https://a/2.jpg", "Restaurant", "café, restaurant"},
	{"2", "Garage Atlas", "Rue 5, Rabat", "+212 555", "Réparation auto"},
	{"", ""},
	{"3", "Pizzeria Roma", "Marrakech", "+212 777", "Pizzas", "", "Restaurant", "pizza, restaurant"},
}

func TestSearchFetchesAndFilters(t *testing.T) {
	fake := newFakeSheetServer(t, http.StatusOK, sheetRows)
	dir := newTestDirectory(t, fake)

	records, err := dir.Search(context.Background(), "Restaurant")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Café Test", records[0].Name)
	require.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, records[0].PhotoURLs)
	require.Equal(t, "Pizzeria Roma", records[1].Name)
	require.Empty(t, records[1].PhotoURLs)

	path, _ := fake.lastPath.Load().(string)
	require.True(t, strings.Contains(path, "sheet-123"), "request path %q should carry the spreadsheet id", path)
}

func TestGetOneShortRowAndNoCaching(t *testing.T) {
	fake := newFakeSheetServer(t, http.StatusOK, sheetRows)
	dir := newTestDirectory(t, fake)

	record, err := dir.GetOne(context.Background(), "Garage Atlas")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "2", record.ID)
	require.Empty(t, record.Category)
	require.Empty(t, record.Keywords)

	missing, err := dir.GetOne(context.Background(), "garage atlas")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.Equal(t, int32(2), fake.requests.Load())
}

func TestFetchErrorIsReturned(t *testing.T) {
	fake := newFakeSheetServer(t, http.StatusNotFound, nil)
	dir := newTestDirectory(t, fake)

	_, err := dir.Search(context.Background(), "x")
	require.Error(t, err)

	record, err := dir.GetOne(context.Background(), "1")
	require.Error(t, err)
	require.Nil(t, record)
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
}

func TestCell(t *testing.T) {
	row := []any{" a ", 42, nil}
	require.Equal(t, "a", cell(row, 0))
	require.Equal(t, "42", cell(row, 1))
	require.Equal(t, "", cell(row, 2))
	require.Equal(t, "", cell(row, 7))
}

const clientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","project_id":"jamalekbot","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","client_secret":"secret","redirect_uris":["http://localhost"]}}`

func TestClientOptionsRequiresToken(t *testing.T) {
	_, err := ClientOptions(context.Background(), []byte(clientJSON), filepath.Join(t.TempDir(), "token.json"))
	require.ErrorIs(t, err, ErrTokenMissing)
	require.Contains(t, err.Error(), "accounts.google.com")
}

func TestClientOptionsWithSavedToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(tokenPath, []byte(`{"access_token":"abc","token_type":"Bearer","refresh_token":"def"}`), 0o600))

	opts, err := ClientOptions(context.Background(), []byte(clientJSON), tokenPath)
	require.NoError(t, err)
	require.Len(t, opts, 1)
}

func TestOAuthConfigRejectsEmptyCredentials(t *testing.T) {
	_, err := OAuthConfig([]byte("  "))
	require.Error(t, err)

	_, err = OAuthConfig([]byte(`{"nope":true}`))
	require.Error(t, err)
}
