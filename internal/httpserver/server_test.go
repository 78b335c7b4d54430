package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/soundgate/internal/bmx"
	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/gateway"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/index"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/metrics"
	"github.com/MrSnakeDoc/soundgate/internal/store/filestore"
	"github.com/MrSnakeDoc/soundgate/internal/testutil"
)

const (
	account   = "12345"
	device    = "ABCDE"
	speakerIP = "192.168.1.20"
	baseURL   = "http://gw.local:8000"
)

var tuneIn = domain.ConfiguredSource{ID: "1", SecretType: "token", SourceKeyType: "TUNEIN"}

// fakeSpeakers serves speaker local API documents keyed by host.
type fakeSpeakers struct {
	info    map[string][]byte
	presets map[string][]byte
}

func (f *fakeSpeakers) Info(_ context.Context, host string) ([]byte, error) {
	if b, ok := f.info[host]; ok {
		return b, nil
	}
	return nil, errors.New("connection refused")
}

func (f *fakeSpeakers) Presets(_ context.Context, host string) ([]byte, error) {
	if b, ok := f.presets[host]; ok {
		return b, nil
	}
	return nil, errors.New("connection refused")
}

func (f *fakeSpeakers) Recents(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

type staticCreds map[string]string

func (s staticCreds) Token(_ context.Context, provider string) (string, bool) {
	tok, ok := s[provider]
	return tok, ok
}

type fakeExchanges []exchange.Entry

func (f fakeExchanges) Recent(_ context.Context, count int64) ([]exchange.Entry, error) {
	if int64(len(f)) > count {
		return f[:count], nil
	}
	return f, nil
}

type fixture struct {
	deps     deps.Deps
	store    *filestore.Store
	speakers *fakeSpeakers
	handler  http.Handler
}

func newFixture(t *testing.T, mutate ...func(*deps.Deps)) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	testutil.SeedDevice(t, store, account, device, speakerIP)
	testutil.SeedSources(t, store, account, tuneIn)
	if err := store.SavePresets(account, device, testutil.EmptyPresets(6, "TUNEIN")); err != nil {
		t.Fatalf("SavePresets: %v", err)
	}

	reg := prometheus.NewRegistry()
	speakers := &fakeSpeakers{info: map[string][]byte{}, presets: map[string][]byte{}}
	d := deps.Deps{
		Logger:        logger.Nop(),
		StartTime:     time.Now(),
		Version:       "test",
		BaseURL:       baseURL,
		MgmtUsername:  "admin",
		MgmtPassword:  "secret",
		Store:         store,
		Codec:         codec.New(store, logger.Nop()),
		Metrics:       metrics.NewCollector(reg),
		Gatherer:      reg,
		MemoryIndex:   index.NewMemoryIndex(),
		Devices:       speakers,
		Credentials:   staticCreds{"SPOTIFY": "spotify-access"},
		Catalog:       bmx.NewCatalog("", baseURL),
		MediaDir:      t.TempDir(),
		ReloadTrigger: make(chan struct{}, 1),
	}
	for _, m := range mutate {
		m(&d)
	}
	return &fixture{deps: d, store: store, speakers: speakers, handler: httpserver.NewRouter(d)}
}

func (f *fixture) request(method, target, body string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = speakerIP + ":41000"
	for _, m := range mods {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func from(ip string) func(*http.Request) {
	return func(r *http.Request) { r.RemoteAddr = ip + ":41000" }
}

func etagOf(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	raw := rec.Header().Get("ETag")
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil {
		t.Fatalf("ETag %q is not a quoted integer", raw)
	}
	return v
}

func TestPresetsRoutes(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/marge/streaming/account/12345/device/ABCDE/presets",
		"/streaming/account/12345/device/ABCDE/presets",
		"/accounts/12345/devices/ABCDE/presets",
	} {
		rec := f.request(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != codec.ContentType {
			t.Errorf("GET %s Content-Type = %q", path, ct)
		}
		if !strings.Contains(rec.Body.String(), `<presets><preset buttonNumber="1">`) {
			t.Errorf("GET %s body = %s", path, rec.Body.String())
		}
	}
}

func TestPresetsNotModified(t *testing.T) {
	f := newFixture(t)
	path := "/marge/streaming/account/12345/device/ABCDE/presets"
	first := f.request(http.MethodGet, path, "")
	etag := first.Header().Get("ETag")

	rec := f.request(http.MethodGet, path, "", func(r *http.Request) { r.Header.Set("If-None-Match", etag) })
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("304 carried a body: %s", rec.Body.String())
	}
}

func TestUpdatePresetRoute(t *testing.T) {
	f := newFixture(t)
	before := etagOf(t, f.request(http.MethodGet, "/marge/streaming/account/12345/device/ABCDE/presets", ""))

	body := `<preset><name>WXRV</name><sourceid>1</sourceid><location>s24062</location><contentItemType>stationurl</contentItemType></preset>`
	rec := f.request(http.MethodPut, "/marge/streaming/account/12345/device/ABCDE/preset/2", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	out := rec.Body.String()
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><preset buttonNumber="2">`) {
		t.Errorf("body = %s", out)
	}
	if !strings.Contains(out, `<source id="1" type="Audio">`) {
		t.Errorf("body lacks resolved source: %s", out)
	}
	if after := etagOf(t, rec); after <= before {
		t.Errorf("ETag went from %d to %d, want increase", before, after)
	}
}

func TestUpdatePresetErrorsRoute(t *testing.T) {
	f := newFixture(t)
	valid := `<preset><name>WXRV</name><sourceid>1</sourceid><location>s24062</location></preset>`

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"slot out of range", "/marge/streaming/account/12345/device/ABCDE/preset/9", valid, 400, domain.CodeSlotOutOfRange},
		{"slot not a number", "/marge/streaming/account/12345/device/ABCDE/preset/two", valid, 400, domain.CodeInvalidIdentifier},
		{"missing location", "/marge/streaming/account/12345/device/ABCDE/preset/1", `<preset><name>x</name><sourceid>1</sourceid></preset>`, 400, domain.CodeMissingField},
		{"unresolvable source", "/marge/streaming/account/12345/device/ABCDE/preset/1", `<preset><name>x</name><sourceid>99</sourceid><location>l</location></preset>`, 400, domain.CodeInvalidSource},
		{"malformed xml", "/marge/streaming/account/12345/device/ABCDE/preset/1", `<preset>`, 400, domain.CodeMalformedXML},
		{"unknown device", "/marge/streaming/account/12345/device/ZZZZZ/preset/1", valid, 404, ""},
		{"invalid account", "/marge/streaming/account/bad.acct/device/ABCDE/preset/1", valid, 400, domain.CodeInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.request(http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" && !strings.Contains(rec.Body.String(), "<code>"+tt.wantErr+"</code>") {
				t.Errorf("body = %s, want code %s", rec.Body.String(), tt.wantErr)
			}
		})
	}
}

func TestAddRecentRoute(t *testing.T) {
	f := newFixture(t)
	body := `<recent><name>Jazz FM</name><sourceid>1</sourceid><location>s1234</location><contentItemType>stationurl</contentItemType></recent>`

	rec := f.request(http.MethodPost, "/marge/streaming/account/12345/device/ABCDE/recent", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}

	// replay through the /accounts alias must not duplicate
	rec = f.request(http.MethodPost, "/accounts/12345/devices/ABCDE/recents", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d", rec.Code)
	}
	recents, err := f.store.GetRecents(account, device)
	if err != nil {
		t.Fatal(err)
	}
	if len(recents) != 1 || recents[0].Name != "Jazz FM" {
		t.Errorf("recents = %+v", recents)
	}

	list := f.request(http.MethodGet, "/marge/streaming/account/12345/device/ABCDE/recents", "")
	if !strings.Contains(list.Body.String(), "Jazz FM") {
		t.Errorf("recents body = %s", list.Body.String())
	}
}

func TestAccountFullRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.request(http.MethodGet, "/marge/streaming/account/12345/full", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("method_name"); got != "getFullAccount" {
		t.Errorf("method_name = %q", got)
	}
	if etagOf(t, rec) < f.store.ETagForPresets(account) {
		t.Error("account ETag lower than presets ETag")
	}

	if rec := f.request(http.MethodGet, "/accounts/99999/full", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown account status = %d, want 404", rec.Code)
	}
}

func TestStaticMargeDocuments(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodGet, "/marge/streaming/software/update/account/12345", "")
	if rec.Header().Get("ETag") != `"1663726921993"` {
		t.Errorf("software update ETag = %q", rec.Header().Get("ETag"))
	}

	rec = f.request(http.MethodGet, "/marge/streaming/account/12345/provider_settings", "")
	if rec.Header().Get("method_name") != "getProviderSettings" || !strings.Contains(rec.Body.String(), "ELIGIBLE_FOR_TRIAL") {
		t.Errorf("provider settings = %v %s", rec.Header(), rec.Body.String())
	}

	rec = f.request(http.MethodGet, "/marge/streaming/sourceproviders", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<sourceProviders>") {
		t.Errorf("sourceproviders = %d %s", rec.Code, rec.Body.String())
	}

	rec = f.request(http.MethodGet, "/marge/streaming/device/ABCDE/streaming_token", "")
	auth := rec.Header().Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer st-local-token-") || !strings.Contains(rec.Body.String(), `value="`+auth+`"`) {
		t.Errorf("streaming token header %q body %s", auth, rec.Body.String())
	}

	rec = f.request(http.MethodGet, "/marge/streaming/device_setting/account/12345/device/ABCDE/device_settings", "")
	if !strings.Contains(rec.Body.String(), "24HR") {
		t.Errorf("device settings = %s", rec.Body.String())
	}

	rec = f.request(http.MethodGet, "/marge/streaming/account/12345/emailaddress", "")
	if !strings.Contains(rec.Body.String(), "<emailAddress>user@example.com</emailAddress>") {
		t.Errorf("email = %s", rec.Body.String())
	}

	for _, path := range []string{"/marge/streaming/support/power_on", "/marge/streaming/support/customersupport", "/v1/scmudc/ABCDE", "/v1/stapp/ABCDE", "/streaming/stats/usage", "/bmx/tunein/v1/report"} {
		if rec := f.request(http.MethodPost, path, `{"event":"x"}`); rec.Code != http.StatusOK {
			t.Errorf("POST %s status = %d", path, rec.Code)
		}
	}
}

func TestRootAnswersAnyone(t *testing.T) {
	f := newFixture(t)
	rec := f.request(http.MethodGet, "/", "", from("203.0.113.50"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Bose":"Can't Brick Us"`) {
		t.Errorf("GET / = %d %s", rec.Code, rec.Body.String())
	}
	rec = f.request(http.MethodGet, "/marge/streaming/sourceproviders", "", from("203.0.113.50"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("unknown public client status = %d, want 403", rec.Code)
	}
}

func TestAddDeviceRoute(t *testing.T) {
	f := newFixture(t)
	const newIP = "192.168.1.30"
	f.speakers.info[newIP] = testutil.DeviceInfoXML("F0F1F2", "Den", newIP)
	f.speakers.presets[newIP] = []byte(`<presets><preset id="1"><ContentItem source="TUNEIN" type="stationurl" location="s555"><itemName>Imported</itemName></ContentItem></preset></presets>`)

	rec := f.request(http.MethodPost, "/marge/streaming/account/67890/device/", `<device deviceid="F0F1F2"><name>Den</name></device>`, from(newIP))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("method_name") != "addDevice" || rec.Header().Get("access-control-expose-headers") != "Credentials" {
		t.Errorf("headers = %v", rec.Header())
	}
	if !strings.Contains(rec.Body.String(), `<device deviceid="F0F1F2">`) || !strings.Contains(rec.Body.String(), "<ipaddress>"+newIP+"</ipaddress>") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !f.store.DeviceExists("67890", "F0F1F2") {
		t.Error("device not stored")
	}
	if !f.deps.MemoryIndex.HasIP(newIP) {
		t.Error("speaker not added to allowlist index")
	}
	presets, err := f.store.GetPresets("67890", "F0F1F2")
	if err != nil {
		t.Fatal(err)
	}
	if len(presets) != 1 || presets[0].Name != "Imported" {
		t.Errorf("imported presets = %+v", presets)
	}
}

func TestAddDeviceUnreachableSpeaker(t *testing.T) {
	f := newFixture(t)
	rec := f.request(http.MethodPost, "/accounts/67890/devices", `<device deviceid="F0F1F2"><name>Den</name></device>`, from("192.168.1.31"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if f.store.AccountExists("67890") {
		t.Error("account created for unreachable speaker")
	}
}

func TestRemoveDeviceRoute(t *testing.T) {
	f := newFixture(t)
	f.deps.MemoryIndex.AddSpeaker(domain.Speaker{AccountID: account, DeviceID: device, IPAddress: speakerIP})

	rec := f.request(http.MethodDelete, "/marge/streaming/account/12345/device/ABCDE", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("method_name") != "removeDevice" {
		t.Errorf("method_name = %q", rec.Header().Get("method_name"))
	}
	if loc := rec.Header().Get("location"); loc != baseURL+"/marge/account/12345/device/ABCDE" {
		t.Errorf("location = %q", loc)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if f.store.DeviceExists(account, device) || f.deps.MemoryIndex.HasIP(speakerIP) {
		t.Error("device still registered")
	}
}

func TestOAuthTokenRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.request(http.MethodPost, "/oauth/device/ABCDE/music/musicprovider/15/token/cs3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "spotify-access" || tok.TokenType != "Bearer" || tok.ExpiresIn != 3600 {
		t.Errorf("token = %+v", tok)
	}

	if rec := f.request(http.MethodPost, "/oauth/device/ABCDE/music/musicprovider/25/token/cs3", ""); rec.Code != http.StatusNotFound {
		t.Errorf("other provider status = %d, want 404", rec.Code)
	}

	empty := newFixture(t, func(d *deps.Deps) { d.Credentials = staticCreds{} })
	rec = empty.request(http.MethodPost, "/oauth/device/ABCDE/music/musicprovider/15/token/cs3", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"error":"no_token"`) {
		t.Errorf("no token = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBMXRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.request(http.MethodGet, "/bmx/registry/v1/services", "")
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "{MEDIA_SERVER}") {
		t.Errorf("services = %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), baseURL) {
		t.Errorf("services do not reference base url: %s", rec.Body.String())
	}

	data := bmx.EncodeStation("http://radio.example/stream", "http://radio.example/logo.png", "Example Radio")
	for _, path := range []string{
		"/bmx/orion/v1/playback/station/" + data,
		"/orion/v1/playback/station/" + data,
		"/core02/svc-bmx-adapter-orion/prod/orion/station?data=" + data,
	} {
		rec := f.request(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, rec.Code)
		}
		var resp bmx.PlaybackResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Audio.StreamURL != "http://radio.example/stream" || resp.Name != "Example Radio" {
			t.Errorf("GET %s = %+v", path, resp)
		}
	}

	if rec := f.request(http.MethodGet, "/bmx/orion/v1/playback/station/!!!", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad station data status = %d, want 400", rec.Code)
	}
}

func TestMediaAndUpdates(t *testing.T) {
	swupdate := filepath.Join(t.TempDir(), "swupdate.xml")
	if err := os.WriteFile(swupdate, []byte("<INDEX/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, func(d *deps.Deps) { d.SWUpdateFile = swupdate })
	if err := os.WriteFile(filepath.Join(f.deps.MediaDir, "radio.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	if rec := f.request(http.MethodGet, "/media/radio.png", ""); rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Errorf("media = %d %q", rec.Code, rec.Body.String())
	}
	if rec := f.request(http.MethodGet, "/media/missing.png", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing media status = %d", rec.Code)
	}
	for _, path := range []string{"/updates/soundtouch", "/marge/updates/soundtouch"} {
		if rec := f.request(http.MethodGet, path, ""); rec.Body.String() != "<INDEX/>" {
			t.Errorf("GET %s = %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestMgmtRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.request(http.MethodGet, "/mgmt/accounts", "", from("203.0.113.50"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	auth := func(r *http.Request) { r.SetBasicAuth("admin", "secret") }
	rec = f.request(http.MethodGet, "/mgmt/accounts", "", from("203.0.113.50"), auth)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"accounts":["12345"]}` {
		t.Errorf("accounts = %d %s", rec.Code, rec.Body.String())
	}

	rec = f.request(http.MethodGet, "/mgmt/accounts/12345/speakers", "", auth)
	var speakers struct {
		Speakers []domain.Speaker `json:"speakers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &speakers); err != nil {
		t.Fatal(err)
	}
	if len(speakers.Speakers) != 1 || speakers.Speakers[0].IPAddress != speakerIP || speakers.Speakers[0].Name != "Kitchen" {
		t.Errorf("speakers = %+v", speakers.Speakers)
	}

	rec = f.request(http.MethodGet, "/mgmt/accounts/12345/devices/ABCDE/presets", "", auth)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"slot":"6"`) {
		t.Errorf("presets = %d %s", rec.Code, rec.Body.String())
	}

	if rec := f.request(http.MethodGet, "/mgmt/exchanges", "", auth); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("exchanges without redis = %d, want 503", rec.Code)
	}

	if rec := f.request(http.MethodDelete, "/mgmt/accounts/12345/devices/ABCDE", "", auth); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := f.request(http.MethodDelete, "/mgmt/accounts/12345/devices/ABCDE", "", auth); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestMgmtExchanges(t *testing.T) {
	entries := fakeExchanges{
		{ID: "b", Outcome: exchange.OutcomeFallback},
		{ID: "a", Outcome: exchange.OutcomeForwarded},
	}
	f := newFixture(t, func(d *deps.Deps) { d.Exchanges = entries })
	auth := func(r *http.Request) { r.SetBasicAuth("admin", "secret") }

	rec := f.request(http.MethodGet, "/mgmt/exchanges?limit=1", "", auth)
	var out struct {
		Exchanges []exchange.Entry `json:"exchanges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Exchanges) != 1 || out.Exchanges[0].ID != "b" {
		t.Errorf("exchanges = %+v", out.Exchanges)
	}
	if rec := f.request(http.MethodGet, "/mgmt/exchanges?limit=0", "", auth); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d", rec.Code)
	}
}

func TestMgmtDisabledWithoutCredentials(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.MgmtUsername = "" })
	if rec := f.request(http.MethodGet, "/mgmt/accounts", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestOpsRoutes(t *testing.T) {
	f := newFixture(t)

	if rec := f.request(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.request(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
	if rec := f.request(http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}

	if rec := f.request(http.MethodPost, "/reload", ""); rec.Code != http.StatusAccepted {
		t.Errorf("first reload = %d, want 202", rec.Code)
	}
	if rec := f.request(http.MethodPost, "/reload", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload = %d, want 429", rec.Code)
	}
	select {
	case <-f.deps.ReloadTrigger:
	default:
		t.Error("reload was not triggered")
	}

	rec := f.request(http.MethodGet, "/infra", "")
	var infra struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &infra); err != nil {
		t.Fatal(err)
	}
	if infra.Status != "operational" || infra.Components["allowlist"] == nil {
		t.Errorf("infra = %s", rec.Body.String())
	}
}

func TestDispatcherFallsBackToLocalHandlers(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("retired"))
	}))
	defer upstream.Close()

	f := newFixture(t, func(d *deps.Deps) {
		d.Dispatcher = gateway.NewDispatcher(gateway.Options{
			Mode:      gateway.ModeProxy,
			Upstreams: gateway.Upstreams{gateway.TargetMarge: upstream.URL},
			Timeout:   2 * time.Second,
			Breaker:   gateway.NewBreaker(time.Minute, 1, time.Now),
			Metrics:   d.Metrics,
		}, logger.Nop())
	})

	for i := 0; i < 2; i++ {
		rec := f.request(http.MethodGet, "/marge/streaming/account/12345/device/ABCDE/presets", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<presets>") {
			t.Fatalf("request %d = %d %s", i+1, rec.Code, rec.Body.String())
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hits = %d, want 1 while the circuit is open", n)
	}

	// root aliases are not vendor paths and never reach the upstream
	f.request(http.MethodGet, "/streaming/account/12345/device/ABCDE/presets", "")
	if hits.Load() != 1 {
		t.Errorf("unprefixed path was forwarded")
	}

	rec := f.request(http.MethodGet, "/infra", "")
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) || !strings.Contains(rec.Body.String(), `"gateway_mode":"proxy"`) {
		t.Errorf("infra = %s", rec.Body.String())
	}
}
