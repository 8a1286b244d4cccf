package deliver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/email"
	"github.com/vctrpage/vctr/internal/newsletter"
)

type fakeSender struct {
	mu            sync.Mutex
	throttleFirst int // fail this many sends with a throttle error
	failFor       string

	sent []email.Message
}

type throttleErr struct{}

func (throttleErr) Error() string                 { return "rate exceeded" }
func (throttleErr) ErrorCode() string             { return "ThrottlingException" }
func (throttleErr) ErrorMessage() string          { return "rate exceeded" }
func (throttleErr) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func (f *fakeSender) Send(_ context.Context, m email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.throttleFirst > 0 {
		f.throttleFirst--
		return throttleErr{}
	}
	if f.failFor != "" && m.To == f.failFor {
		return assert.AnError
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeTweeter struct {
	texts []string
}

func (f *fakeTweeter) Tweet(_ context.Context, text string) (string, error) {
	f.texts = append(f.texts, text)
	return "123", nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testDeliverer(t *testing.T, input string) (*Deliverer, *fakeSender, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{}
	cfg.Site.Title = "Artículos de Víctor"
	cfg.Site.Description = "Artículos sobre software"
	cfg.Site.Origin = "https://vctr.page"
	cfg.ApplyDefaults()
	cfg.Paths.Articles = filepath.Join(root, "articles")
	cfg.Paths.HashFile = filepath.Join(root, "hashes.json")
	cfg.Deliver.ReportsDir = filepath.Join(root, "reports")
	cfg.Deliver.Backoff = time.Millisecond

	writeFile(t, filepath.Join(cfg.Paths.Articles, "2024", "12", "viejo.html"),
		"---\ntitle: Viejo\ndate: 2024-12-01\ndescription: d\n---\n<p>viejo.</p>")
	writeFile(t, filepath.Join(cfg.Paths.Articles, "2025", "03", "nuevo.html"),
		"---\ntitle: Nuevo artículo\ndate: 2025-03-10\ndescription: d\nimg: img/nuevo.png\n---\n<p>Primer párrafo.</p><p>Segundo.</p>")
	writeFile(t, cfg.Paths.HashFile, `{"img/nuevo.png": "abcd1234"}`)

	store, err := newsletter.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sender := &fakeSender{}
	out := &bytes.Buffer{}
	d := &Deliverer{
		Config: cfg,
		Store:  store,
		Sender: sender,
		Signer: &newsletter.Signer{Secret: "secret", TTL: 7 * 24 * time.Hour},
		In:     strings.NewReader(input),
		Out:    out,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return d, sender, out
}

func addConfirmed(t *testing.T, store *newsletter.Store, addrs ...string) {
	t.Helper()
	ctx := context.Background()
	for _, a := range addrs {
		inserted, err := store.InsertPending(ctx, a, newsletter.HashToken(a), time.Now())
		require.NoError(t, err)
		require.True(t, inserted)
		sub, err := store.GetByEmail(ctx, a)
		require.NoError(t, err)
		ok, err := store.Confirm(ctx, sub.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestFirstParagraph(t *testing.T) {
	assert.Equal(t,
		`<p style="margin: 16px 0 0 0;">Hola <strong>mundo</strong>...</p>`,
		FirstParagraph(`<p class="x">Hola <strong>mundo</strong>.</p><p>Otro.</p>`))

	assert.Equal(t,
		`<p style="margin: 16px 0 0 0;">Sigue...</p>`,
		FirstParagraph("<p>Sigue...</p>"))

	assert.Equal(t,
		`<p style="margin: 16px 0 0 0;">Sin punto final...</p>`,
		FirstParagraph("<p>Sin punto final</p>"))

	assert.Empty(t, FirstParagraph("<div>no paragraphs</div>"))
	assert.Empty(t, FirstParagraph(""))
}

func TestTweetText(t *testing.T) {
	assert.Equal(t, "Título https://vctr.page/articulos/x", TweetText("Título", "https://vctr.page/articulos/x"))

	url := "https://vctr.page/articulos/largo"
	long := strings.Repeat("palabra ", 60)
	text := TweetText(long, url)
	assert.LessOrEqual(t, len([]rune(text)), 280)
	assert.True(t, strings.HasSuffix(text, " "+url))
	assert.Contains(t, text, "…")

	// A URL that fills the whole budget still comes through intact.
	huge := "https://vctr.page/articulos/" + strings.Repeat("a", 300)
	assert.Equal(t, "… "+huge, TweetText("Título", huge))
}

func TestLatestIssue(t *testing.T) {
	d, _, _ := testDeliverer(t, "")

	issue, err := d.LatestIssue()
	require.NoError(t, err)

	assert.Equal(t, "Nuevo artículo", issue.Article.Title)
	assert.Equal(t, "https://vctr.page/articulos/nuevo-articulo", issue.URL)
	assert.Equal(t, `<p style="margin: 16px 0 0 0;">Primer párrafo...</p>`, issue.FirstParagraph)
	assert.Equal(t, "https://vctr.page/cdn-cgi/image/width=500,quality=auto,format=auto/img/nuevo.abcd1234.webp", issue.ImageURL)
	assert.False(t, issue.External)
}

func TestRunSendsToConfirmed(t *testing.T) {
	d, sender, out := testDeliverer(t, "y\n")
	addConfirmed(t, d.Store, "a@example.org", "b@example.org")

	require.NoError(t, d.Run(context.Background()))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, out.String(), "Found 2 confirmed subscribers.")
	assert.Contains(t, out.String(), "Successfully sent to 2/2 addresses.")

	m := sender.sent[0]
	assert.Equal(t, "Nuevo artículo", m.Subject)
	assert.Equal(t, "issue", m.Tags["type"])
	assert.Contains(t, m.HTML, "Leer artículo completo")
	assert.Contains(t, m.HTML, "/api/newsletter-unsubscribe?")
	assert.Contains(t, m.Text, "https://vctr.page/articulos/nuevo-articulo")

	// Unsubscribe links are individual per recipient.
	assert.NotEqual(t, sender.sent[0].HTML, sender.sent[1].HTML)

	entries, err := os.ReadDir(d.Config.Deliver.ReportsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "newsletter_success_")
}

func TestRunAborted(t *testing.T) {
	d, sender, out := testDeliverer(t, "n\n")
	addConfirmed(t, d.Store, "a@example.org")

	require.NoError(t, d.Run(context.Background()))
	assert.Empty(t, sender.sent)
	assert.Contains(t, out.String(), "Aborted. No emails sent.")
}

func TestRunTweetPrompt(t *testing.T) {
	d, _, out := testDeliverer(t, "y\nn\n")
	tweeter := &fakeTweeter{}
	d.Tweeter = tweeter

	require.NoError(t, d.Run(context.Background()))

	require.Len(t, tweeter.texts, 1)
	assert.Equal(t, "Nuevo artículo https://vctr.page/articulos/nuevo-articulo", tweeter.texts[0])
	assert.Contains(t, out.String(), "Tweet posted. ID: 123")
	assert.Contains(t, out.String(), "Nothing to send.")
}

func TestSendBatchRetriesThrottling(t *testing.T) {
	d, sender, _ := testDeliverer(t, "y\n")
	addConfirmed(t, d.Store, "a@example.org")
	sender.throttleFirst = 2

	require.NoError(t, d.Run(context.Background()))
	require.Len(t, sender.sent, 1)
}

func TestSendBatchReportsFailures(t *testing.T) {
	d, sender, out := testDeliverer(t, "y\n")
	addConfirmed(t, d.Store, "a@example.org", "b@example.org")
	sender.failFor = "a@example.org"

	require.NoError(t, d.Run(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "b@example.org", sender.sent[0].To)
	assert.Contains(t, out.String(), "(1 failed)")

	entries, err := os.ReadDir(d.Config.Deliver.ReportsDir)
	require.NoError(t, err)
	names := []string{entries[0].Name(), entries[1].Name()}
	assert.Condition(t, func() bool {
		for _, n := range names {
			if strings.Contains(n, "newsletter_failed_") {
				return true
			}
		}
		return false
	})

	failedPath := ""
	for _, e := range entries {
		if strings.Contains(e.Name(), "newsletter_failed_") {
			failedPath = filepath.Join(d.Config.Deliver.ReportsDir, e.Name())
		}
	}
	data, err := os.ReadFile(failedPath)
	require.NoError(t, err)
	assert.Equal(t, "a@example.org", string(data))
}
