// Package dom adapts an XML or XHTML document to the reconciliation engine.
//
// A Document owns a parsed xmlquery tree. Its text and CDATA nodes are the
// leaves the engine indexes; artifacts are realized as id tokens in an
// attribute (data-reanchor by default) on the element containing the start
// of the annotated span. Exclusion zones are elements selected by XPath.
//
// Mutations made through the Document API are reported to an attached
// Watcher, which debounces them into engine change notifications and
// implements engine.ChangeSource.
package dom
