package deliver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/email"
	"github.com/vctrpage/vctr/internal/newsletter"
	"github.com/vctrpage/vctr/internal/retry"
)

// Deliverer runs one newsletter sending end to end.
type Deliverer struct {
	Config *config.Config
	Store  *newsletter.Store
	Sender email.Sender
	Signer *newsletter.Signer

	Tweeter Tweeter // nil disables the announcement step

	In  io.Reader // confirmation prompts, defaults to stdin
	Out io.Writer // progress output, defaults to stdout

	Logger *slog.Logger
	Now    func() time.Time

	scanner *bufio.Scanner
}

// Report summarizes one sending.
type Report struct {
	Sent   []string
	Failed []string
}

func (d *Deliverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deliverer) in() io.Reader {
	if d.In != nil {
		return d.In
	}
	return os.Stdin
}

func (d *Deliverer) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

// confirm asks a y/N question on the terminal. Anything but yes is a no.
func (d *Deliverer) confirm(question string) bool {
	fmt.Fprintf(d.out(), "%s [y/N] ", question)
	if d.scanner == nil {
		d.scanner = bufio.NewScanner(d.in())
	}
	if !d.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(d.scanner.Text()))
	return answer == "y" || answer == "yes"
}

// Run resolves the latest article, asks for confirmation, and fans the issue
// out to all confirmed subscribers.
func (d *Deliverer) Run(ctx context.Context) error {
	issue, err := d.LatestIssue()
	if err != nil {
		return err
	}

	fmt.Fprintf(d.out(), "\nLatest article detected:\n")
	fmt.Fprintf(d.out(), " > Title: %s\n", issue.Article.Title)
	fmt.Fprintf(d.out(), " > URL:   %s\n", issue.URL)
	fmt.Fprintf(d.out(), " > Img:   %s\n\n", issue.ImageURL)

	if d.Tweeter != nil {
		if d.confirm("Post article on X (Twitter)?") {
			if id, err := d.Tweeter.Tweet(ctx, TweetText(issue.Article.Title, issue.URL)); err != nil {
				// A failed announcement never blocks the sending.
				d.logger().Error("tweet failed", "error", err)
			} else {
				fmt.Fprintf(d.out(), "Tweet posted. ID: %s\n", id)
			}
		} else {
			fmt.Fprintln(d.out(), "Skipping tweet.")
		}
	}

	emails, err := d.Store.ConfirmedEmails(ctx)
	if err != nil {
		return fmt.Errorf("load confirmed subscribers: %w", err)
	}
	fmt.Fprintf(d.out(), "\nFound %d confirmed subscribers.\n", len(emails))
	if len(emails) == 0 {
		fmt.Fprintln(d.out(), "Nothing to send.")
		return nil
	}

	if !d.confirm("Send this newsletter to confirmed subscribers?") {
		fmt.Fprintln(d.out(), "Aborted. No emails sent.")
		return nil
	}

	report := d.sendBatch(ctx, emails, issue)
	fmt.Fprintf(d.out(), "Successfully sent to %d/%d addresses.", len(report.Sent), len(emails))
	if len(report.Failed) > 0 {
		fmt.Fprintf(d.out(), " (%d failed)", len(report.Failed))
	}
	fmt.Fprintln(d.out())

	if err := d.writeReports(report); err != nil {
		d.logger().Warn("could not write report files", "error", err)
	}
	return nil
}

// sendBatch delivers the issue with bounded concurrency. Throttling from SES
// is retried with a linear backoff; any other failure marks the recipient as
// failed and moves on.
func (d *Deliverer) sendBatch(ctx context.Context, emails []string, issue *Issue) *Report {
	policy := retry.NewPolicy(retry.BackoffLinear, d.Config.Deliver.Backoff, 30*time.Second, d.Config.Deliver.MaxRetries)

	queue := make(chan string)
	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for range d.Config.Deliver.Workers {
		g.Go(func() error {
			for to := range queue {
				err := policy.Do(ctx, func() error {
					return d.Sender.Send(ctx, d.issueEmail(to, issue))
				}, email.IsThrottling)

				mu.Lock()
				if err != nil {
					d.logger().Error("send failed", "to", to, "error", err)
					report.Failed = append(report.Failed, to)
				} else {
					report.Sent = append(report.Sent, to)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	for _, to := range emails {
		queue <- to
	}
	close(queue)
	_ = g.Wait()

	return report
}

// writeReports drops the sent/failed address lists next to the operator for
// a post-send sanity check.
func (d *Deliverer) writeReports(report *Report) error {
	dir := d.Config.Deliver.ReportsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(d.now().UTC().Format(time.RFC3339))

	if len(report.Failed) > 0 {
		p := filepath.Join(dir, fmt.Sprintf("newsletter_failed_%s.txt", stamp))
		if err := os.WriteFile(p, []byte(strings.Join(report.Failed, "\n")), 0o644); err != nil {
			return fmt.Errorf("write failed report: %w", err)
		}
		fmt.Fprintf(d.out(), "Failed emails written to: %s\n", p)
	}
	if len(report.Sent) > 0 {
		p := filepath.Join(dir, fmt.Sprintf("newsletter_success_%s.txt", stamp))
		if err := os.WriteFile(p, []byte(strings.Join(report.Sent, "\n")), 0o644); err != nil {
			return fmt.Errorf("write success report: %w", err)
		}
	}
	return nil
}
