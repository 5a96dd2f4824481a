// Package renderer turns dashboard view models into markdown. The markdown is
// served as HTML through goldmark or printed to a terminal through glamour.
package renderer
