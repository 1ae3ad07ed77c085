package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-rod/rod"
)

// responseContainers are the containers the surface renders answers
// into, most specific first.
var responseContainers = []string{
	"message-content",
	"model-response",
	".model-response-text",
	".response-container",
	"[data-message-author-role=\"assistant\"]",
}

// LastResponseText returns the rendered text of the newest answer
// container, or empty when none is present yet.
func (s *Session) LastResponseText(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`(selectors) => {
		for (const sel of selectors) {
			const els = document.querySelectorAll(sel);
			if (els.length > 0) {
				const el = els[els.length - 1];
				return el.innerText || el.textContent || '';
			}
		}
		return '';
	}`, responseContainers)
	if err != nil {
		return "", fmt.Errorf("session: read response: %w", err)
	}
	return res.Value.Str(), nil
}

// SelectorTexts returns the visible text of every element matching
// selector, in document order.
func (s *Session) SelectorTexts(ctx context.Context, selector string) ([]string, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("session: query %q: %w", selector, err)
	}
	var out []string
	for _, el := range els {
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// DeepText collects text for selector across the document and every
// open shadow root, since the surface hides answer markup behind
// custom elements.
func (s *Session) DeepText(ctx context.Context, selector string) (string, error) {
	res, err := s.page.Context(ctx).Eval(`(sel) => {
		const parts = [];
		const walk = (root) => {
			for (const el of root.querySelectorAll(sel)) {
				const t = el.innerText || el.textContent || '';
				if (t.trim()) parts.push(t);
			}
			for (const el of root.querySelectorAll('*')) {
				if (el.shadowRoot) walk(el.shadowRoot);
			}
		};
		walk(document);
		return parts.join('\n\n');
	}`, selector)
	if err != nil {
		return "", fmt.Errorf("session: deep read %q: %w", selector, err)
	}
	return res.Value.Str(), nil
}

// copyButtonSelector matches the surface's copy controls.
const copyButtonSelector = `button[aria-label*="copy" i], button[data-test-id*="copy"], ` +
	`[role="button"][aria-label*="copy" i], button.copy-button`

// userMessageSelector marks containers holding the user's own message;
// copy buttons inside them copy the prompt, not the answer.
const userMessageSelector = `user-query, .user-query, .query-content, [data-message-author-role="user"]`

// CopyLatestResponse clicks the newest copy control belonging to an
// answer and returns the clipboard contents.
func (s *Session) CopyLatestResponse(ctx context.Context) (string, error) {
	els, err := s.page.Context(ctx).Elements(copyButtonSelector)
	if err != nil {
		return "", fmt.Errorf("session: find copy buttons: %w", err)
	}

	var target *rod.Element
	for _, el := range els {
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		res, err := el.Eval(fmt.Sprintf(`() => !!this.closest(%q)`, userMessageSelector))
		if err != nil || res.Value.Bool() {
			continue
		}
		target = el
	}
	if target == nil {
		return "", ErrCopyButtonNotFound
	}

	if err := s.cursor.Click(s.page.Context(ctx), target); err != nil {
		return "", fmt.Errorf("session: click copy button: %w", err)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(400 * time.Millisecond):
	}
	return s.readClipboard(ctx)
}

// readClipboard tries the in-page clipboard API first, then the host
// clipboard. Headless profiles often deny the former.
func (s *Session) readClipboard(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => navigator.clipboard.readText()`)
	if err == nil {
		if text := res.Value.Str(); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	text, err := clipboard.ReadAll()
	if err != nil || strings.TrimSpace(text) == "" {
		return "", ErrClipboardUnavailable
	}
	return text, nil
}
