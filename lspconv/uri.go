// Package lspconv converts between LSP wire representations and the byte/
// rune offsets this server's backend works in natively: document URIs to
// and from filesystem paths, and UTF-16 code-unit positions to and from
// byte offsets into a document's text.
package lspconv

import (
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// MetadataScheme is the URI scheme used for decompiled-metadata virtual
// documents; MetadataPathPrefix is the fixed path prefix under it.
const (
	MetadataScheme     = "csharp"
	MetadataPathPrefix = "/metadata/projects/"
)

// IsMetadataURI reports whether uri belongs to the decompiled-metadata
// namespace rather than the file: namespace.
func IsMetadataURI(u protocol.DocumentURI) bool {
	return strings.HasPrefix(string(u), MetadataScheme+":")
}

// URIToPath converts a file: URI to an absolute filesystem path. Metadata
// URIs are returned unchanged — they have no filesystem backing.
func URIToPath(u protocol.DocumentURI) string {
	if IsMetadataURI(u) {
		return string(u)
	}
	return uri.URI(u).Filename()
}

// PathToURI converts an absolute filesystem path to a file: URI.
func PathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}

// NormalizeURI round-trips a file: URI through its filesystem path so two
// differently-encoded URIs naming the same file compare equal; metadata
// URIs pass through unchanged since they already are canonical.
func NormalizeURI(u protocol.DocumentURI) protocol.DocumentURI {
	if IsMetadataURI(u) {
		return u
	}
	return PathToURI(URIToPath(u))
}

// MetadataURI synthesizes the stable virtual-document URI for a symbol
// declared in assembly, per the project/assembly/fully-qualified-name
// scheme this server advertises to clients.
func MetadataURI(project, assembly, fullReflectionName string) protocol.DocumentURI {
	var sb strings.Builder
	sb.WriteString(MetadataScheme + ":" + MetadataPathPrefix)
	sb.WriteString(project)
	sb.WriteString("/assemblies/")
	sb.WriteString(assembly)
	sb.WriteString("/symbols/")
	sb.WriteString(fullReflectionName)
	sb.WriteString(".cs")
	return protocol.DocumentURI(sb.String())
}
