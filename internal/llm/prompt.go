package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/po-extractor/constants"
)

const basePrompt = `You are transforming a client's Purchase Order document into the factory's canonical JSON.
The PO is FROM the client TO Chandra Jewels (vendor). The buyer/client is the sender placing the order.

Output schema (use these exact keys):
{
  "po": {
    "poNumber": string,        // PO/Order number from the header
    "poDate": string,          // yyyy-mm-dd if available, else ""
    "clientName": string,      // buyer name from the PO header, never Chandra Jewels
    "totalItems": number,      // length of the items array
    "totalValue": number | null
  },
  "items": [
    {
      "vendorStyleCode": string,
      "itemRefNo": string,
      "itemPoNo": string,
      "invoiceNumber": string,
      "orderQty": number,
      "metal": string,
      "tone": string,
      "category": string,
      "stockType": string | null,
      "makeType": string | null,
      "customerProductionInstruction": string | null,
      "specialRemarks": string | null,
      "designProductionInstruction": string | null,
      "stampInstruction": string | null,
      "itemSize": string | null,
      "deadlineDate": string | null,
      "shippingDate": string | null,
      "isIncomplete": boolean  // true when any field of the row could not be read
    }
  ]
}

Rules:
- If a field is not present, use "" for strings and null for nullable fields. Never invent data.
- Preserve numeric quantities as numbers without thousands separators. Treat a missing quantity as 0.
- Preserve the serial order of rows. Emit exactly one item per serial-numbered row, no missing or extra items.
- totalItems MUST equal the length of items.`

// BuildPrompt assembles the base instructions with vocabularies and per-document hints.
func BuildPrompt(in PromptInput) string {
	parts := []string{
		basePrompt,
		vocabularySection(),
	}

	switch in.Format {
	case constants.PDF:
		parts = append(parts, "The document is a PDF converted to text. Items are listed with serial numbers; extract every serial-numbered row.")
	case constants.SPREADSHEET:
		parts = append(parts, "The document is a spreadsheet. Each sheet starts with a line \"=== Sheet: <name> ===\" followed by CSV rows. "+
			"Skip header and empty rows; every remaining data row is one item.")
	}

	if name := strings.TrimSpace(in.ClientName); name != "" {
		parts = append(parts, fmt.Sprintf("Client name hint: %s. Use this as clientName if it matches the PO header.", name))
	}
	if in.ExpectedItems != nil {
		n := *in.ExpectedItems
		parts = append(parts, fmt.Sprintf("This PO contains exactly %d items. The items array MUST have exactly %d entries and totalItems MUST be %d.", n, n, n))
	}
	if m := strings.TrimSpace(in.MappingText); m != "" {
		parts = append(parts, "Client mapping (each line is \"ClientField -> OurField (instruction)\"; apply it to fill the canonical fields):\n"+m)
	}

	parts = append(parts, "Respond with JSON only, no markdown or explanations.")
	return strings.Join(parts, "\n\n")
}

func vocabularySection() string {
	var b strings.Builder
	b.WriteString("Closed vocabularies. Use one of these exact values when the document clearly states it; otherwise copy the document's value as-is (use null for stockType and makeType):\n")
	for _, v := range []constants.Vocabulary{
		constants.Categories,
		constants.Metals,
		constants.Tones,
		constants.StockTypes,
		constants.MakeTypes,
	} {
		b.WriteString("- ")
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Quoted())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// WithFeedback appends the problems found in the previous attempt to base.
func WithFeedback(base string, feedback []string) string {
	if len(feedback) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nThe previous response had these problems:\n")
	for _, f := range feedback {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("Fix ONLY the invalid parts. Preserve every valid item exactly as it was and return the complete JSON document.")
	return b.String()
}
