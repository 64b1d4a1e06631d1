package models

const (
	// PageMarkerRegex matches the page markers the parsing service injects
	// into extracted markdown, e.g. "--- PAGE 3 ---".
	PageMarkerRegex = `(?i)---\s*PAGE\s+(\d+)\s*---`

	// TablePlaceholderFormat is the token a detected table is replaced
	// with while the surrounding text is split.
	TablePlaceholderFormat = "\x00TABLE:%d\x00"
	TablePlaceholderRegex  = "\x00TABLE:(\\d+)\x00"

	GreetingRegex = `(?i)^\s*(hi|hii+|hello|hey|yo|good\s+(morning|afternoon|evening)|thanks?|thank\s+you|ok(ay)?|bye|goodbye|how\s+are\s+you)\b[\s!.,?]*`
	AnalysisRegex = `(?i)\b(compare|comparison|difference|differences|summar(y|ize|ise)|explain|analy(z|s)e|overview|versus|vs\.?|pros\s+and\s+cons|better)\b`
)

var (
	SystemPromptTemplate = `You are an assistant helping insurance agents understand policy and quote documents. Answer using only the document excerpts provided below.

Rules:
- Base every factual statement on the excerpts. Do not use outside knowledge about specific policies, carriers, or prices.
- Always cite the page number when referencing document content, like (page 4).
- If the excerpts do not contain the information needed, say the information was not found in the document. Never invent coverage details, limits, or premiums.
- Greetings and conversational remarks deserve a natural, friendly reply; they do not need citations or a not-found disclaimer.

Document excerpts:
%s`

	ContextBlockTemplate = "[Excerpt %d | page %d]\n%s"
)
