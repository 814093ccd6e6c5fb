package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gestion-smac/smacctl/internal/entity"
)

const pathEvents = "/api/events"

// FollowHistory subscribes to the backend's audit event stream and invokes
// fn for every history entry the server pushes. It blocks until the
// context is canceled or the connection drops.
func (c *Client) FollowHistory(ctx context.Context, fn func(entity.History)) error {
	tok, err := c.token.Token()
	if err != nil {
		return fmt.Errorf("api: obtaining token: %w", err)
	}

	header := http.Header{}
	if tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	header.Set("User-Agent", userAgent)

	conn, _, err := websocket.Dial(ctx, wsURL(c.baseURL)+pathEvents, &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: header,
	})
	if err != nil {
		return &APIError{Message: MsgUnreachable, Err: ErrUnreachable}
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.logger.Info("following audit events", "url", c.baseURL+pathEvents)

	for {
		var h entity.History
		if err := wsjson.Read(ctx, conn, &h); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return nil
			}

			return fmt.Errorf("api: event stream: %w", err)
		}

		fn(h)
	}
}

// wsURL rewrites an http(s) base URL to its ws(s) equivalent.
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
