package harvest

// selectorCatalog is the static list of places answers have been seen
// to render, roughly ordered from most to least specific. Selector
// memory gets tried before any of these. The surface reshuffles its
// markup often, hence the breadth.
var selectorCatalog = []string{
	// Answer containers, current markup first.
	"message-content",
	"model-response",
	"model-response message-content",
	"message-content .markdown",
	".model-response-text",
	".model-response-text .markdown",
	".response-container",
	".response-container-content",
	".response-content",
	".conversation-container message-content",
	"[data-message-author-role=\"assistant\"]",
	"[data-message-id] .markdown",
	"div[id^=\"model-response\"]",
	"div[id^=\"message-content\"]",

	// Markdown bodies.
	".markdown",
	".markdown-main-panel",
	".markdown p",
	"div.markdown",
	"[class*=\"markdown\"]",

	// Generic response wrappers.
	"[class*=\"response-text\"]",
	"[class*=\"response-content\"]",
	"[class*=\"model-response\"]",
	"[class*=\"message-content\"]",
	"[class*=\"assistant\"]",
	"[class*=\"bot-message\"]",
	"[class*=\"ai-message\"]",
	"[class*=\"answer\"]",
	"[data-test-id*=\"response\"]",
	"[data-testid*=\"response\"]",
	"[data-test-id*=\"message\"]",
	"[data-testid*=\"conversation-turn\"]",

	// Chat turn structures.
	".chat-turn",
	".chat-message",
	".chat-history message-content",
	".conversation-turn",
	"[role=\"presentation\"] .markdown",
	"main [role=\"region\"] p",

	// Code and preformatted payloads; the JSON often lands here.
	"message-content pre",
	"message-content code",
	".markdown pre",
	".markdown code",
	"pre code",
	"code-block",
	".code-block",
	"[class*=\"code-container\"]",

	// Custom elements seen across surface revisions.
	"response-element",
	"structured-content",
	"rich-content",
	"text-content",
	"chat-message",
	"chat-turn",
	"message-text",

	// Paragraph-level fallbacks.
	"main p",
	"article p",
	"section p",
	"main div[dir=\"ltr\"]",
	"[dir=\"ltr\"] p",

	// Last-ditch containers.
	"main",
	"article",
	"#chat-history",
	".chat-container",
	".conversation-container",
}

// deepSelectors are tried through shadow roots when the flat catalog
// finds nothing.
var deepSelectors = []string{
	"message-content",
	".model-response-text",
	".markdown",
	"[class*=\"response\"]",
}
