// Package export provides the JSON exporter, the one writer this
// module implements directly. §6 names JSON, CSV, HTML, and Excel as
// out-of-scope "pure functions over the record schema"; JSON needs no
// column-flattening decisions the way CSV/HTML do; the CLI shell wires
// it here so the module runs end to end without waiting on the
// separate exporter collaborator for the common case.
package export

import (
	"encoding/json"
	"io"

	"github.com/typosniper/typo-sniper/internal/record"
)

// Document is the top-level JSON layout: ScanMeta plus the ordered
// PermutationRecord sequence, mirroring §3 exactly (§6 Exporter
// interface: "JSON layout mirrors §3 exactly").
type Document struct {
	Meta    record.ScanMeta            `json:"meta"`
	Records []record.PermutationRecord `json:"records"`
}

// WriteJSON serializes meta and records as a single indented JSON
// document to w.
func WriteJSON(w io.Writer, meta record.ScanMeta, records []record.PermutationRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Meta: meta, Records: records})
}
