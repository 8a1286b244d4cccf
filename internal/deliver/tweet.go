package deliver

import (
	"context"
	"fmt"
	"strings"

	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/tweet/managetweet"
	"github.com/michimani/gotwi/tweet/managetweet/types"
)

const maxTweetLength = 280

// Tweeter posts the announcement for a new article.
type Tweeter interface {
	Tweet(ctx context.Context, text string) (string, error)
}

// XClient posts through the X API v2 with OAuth 1.0a user context.
type XClient struct {
	client *gotwi.Client
}

// NewXClient builds a client from the four user-context credentials.
func NewXClient(apiKey, apiSecret, accessToken, accessSecret string) (*XClient, error) {
	c, err := gotwi.NewClient(&gotwi.NewClientInput{
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		APIKey:               apiKey,
		APIKeySecret:         apiSecret,
		OAuthToken:           accessToken,
		OAuthTokenSecret:     accessSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create X client: %w", err)
	}
	return &XClient{client: c}, nil
}

func (x *XClient) Tweet(ctx context.Context, text string) (string, error) {
	out, err := managetweet.Create(ctx, x.client, &types.CreateInput{
		Text: gotwi.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("failed to post tweet: %w", err)
	}
	return gotwi.StringValue(out.Data.ID), nil
}

// TweetText composes "title url", truncating the title with an ellipsis when
// the whole text would not fit. The URL is never cut.
func TweetText(title, url string) string {
	text := title + " " + url
	if len([]rune(text)) <= maxTweetLength {
		return text
	}

	maxTitle := maxTweetLength - len([]rune(url)) - 1
	if maxTitle <= 1 {
		// The URL leaves no room for a title at all.
		return "… " + url
	}
	runes := []rune(title)
	if len(runes) > maxTitle {
		runes = runes[:maxTitle-1]
		title = strings.TrimSpace(string(runes)) + "…"
	}
	return title + " " + url
}
