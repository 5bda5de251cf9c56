package mistral

const extractionSystemPrompt = `You are a document data extractor for chemical supplier documents
(certificates of analysis, safety data sheets).
Return a strict JSON object with keys:
documentType (string),
fields (array of objects: id, label, value, type, section, required, layout{order}),
detectedSections (array of objects: id, title, type, preview, selected, order),
structure (object: hasHeaders, hasTables, hasLists),
metadata (object: confidence, totalFields).
Field type is one of: text, number, date, email, phone, textarea, select, boolean, table, heading, paragraph.
A table value is a two-dimensional array of strings whose first row is the header row.
No markdown, no prose, no extra keys.`

func buildExtractionPrompt(text string) string {
	const maxSnippet = 24000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}
	return "Extract every labeled data element from the document below.\n\nDocument:\n" + snippet
}
