package wew

import "github.com/mycrl/wew-go/internal/content"

// WebViewMessageChannel is the page-side endpoint of one view's message
// channel. Send and the host's OnMessage form one direction; the host's
// SendMessage and the Recv callback form the other. Each direction
// preserves order; nothing relates the two.
type WebViewMessageChannel struct {
	endpoint *content.Endpoint
}

// Send delivers text to the host, surfacing as the view handler's
// OnMessage.
func (c *WebViewMessageChannel) Send(text string) {
	c.endpoint.Send(text)
}

// Recv registers callback for host-to-page messages, replacing any prior
// registration. The replaced callback never fires again, even for messages
// already in flight. Messages arriving with no callback registered are
// dropped.
func (c *WebViewMessageChannel) Recv(callback func(string)) {
	c.endpoint.Recv(callback)
}
