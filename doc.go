// Package salvage provides:
//
// - Detection of node and mark types a schema does not know, reported as an
//   ordered list of InvalidContentBlock values with replayable paths
// - Probing HTML for elements no extension parses
// - Synthesis of low-priority placeholder extensions that hold unknown
//   content losslessly
// - A content build pipeline that never fails and falls back to empty content
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - The document model lives in model/, extension descriptors in extension/, and the CLI under cmd/salvage.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	blocks := salvage.GetUnknownContent(doc, schema)
//	exts, err := salvage.CreatePlaceholderExtensions(html, exts, salvage.PlaceholderOptions{})
//	out := salvage.Build(content, schema, salvage.BuildOptions{Slice: true})
package salvage
