package lsp

import "go.lsp.dev/protocol"

// Wire-shape structs for the LSP payloads this server's handler set reads
// and writes. protocol.Position, protocol.Range, protocol.DocumentURI and
// protocol.Diagnostic come from go.lsp.dev/protocol directly; everything
// else is declared locally with the field names and JSON tags the LSP
// specification fixes, rather than guessed against the library's richer
// (and here, unneeded) request/response option types.

type textDocumentIdentifier struct {
	URI protocol.DocumentURI `json:"uri"`
}

type versionedTextDocumentIdentifier struct {
	URI     protocol.DocumentURI `json:"uri"`
	Version int32                `json:"version"`
}

type textDocumentItem struct {
	URI        protocol.DocumentURI `json:"uri"`
	LanguageID string               `json:"languageId"`
	Version    int32                `json:"version"`
	Text       string               `json:"text"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position      `json:"position"`
}

type initializeParams struct {
	RootURI      protocol.DocumentURI `json:"rootUri"`
	Capabilities clientCapabilities   `json:"capabilities"`
	InitializationOptions struct {
		SolutionPath string `json:"solutionPath"`
	} `json:"initializationOptions"`
}

// clientCapabilities captures only the fields this server's handlers
// branch on; the client may send many more, silently ignored.
type clientCapabilities struct {
	TextDocument struct {
		CodeAction struct {
			DataSupport     bool `json:"dataSupport"`
			ResolveSupport  *struct {
				Properties []string `json:"properties"`
			} `json:"resolveSupport"`
		} `json:"codeAction"`
	} `json:"textDocument"`
	Workspace struct {
		WorkspaceEdit struct {
			DocumentChanges bool `json:"documentChanges"`
		} `json:"workspaceEdit"`
	} `json:"workspace"`
}

type serverCapabilities struct {
	TextDocumentSync         int                     `json:"textDocumentSync"`
	HoverProvider            bool                    `json:"hoverProvider"`
	DefinitionProvider       bool                    `json:"definitionProvider"`
	ImplementationProvider   bool                    `json:"implementationProvider"`
	ReferencesProvider       bool                    `json:"referencesProvider"`
	DocumentHighlightProvider bool                   `json:"documentHighlightProvider"`
	DocumentSymbolProvider   bool                    `json:"documentSymbolProvider"`
	WorkspaceSymbolProvider  bool                    `json:"workspaceSymbolProvider"`
	RenameProvider           renameOptions           `json:"renameProvider"`
	CodeActionProvider       codeActionOptions       `json:"codeActionProvider"`
	CodeLensProvider         codeLensOptions         `json:"codeLensProvider"`
	CompletionProvider       completionOptions       `json:"completionProvider"`
	SignatureHelpProvider    signatureHelpOptions    `json:"signatureHelpProvider"`
	DocumentFormattingProvider      bool             `json:"documentFormattingProvider"`
	DocumentRangeFormattingProvider bool             `json:"documentRangeFormattingProvider"`
	DocumentOnTypeFormattingProvider onTypeFormattingOptions `json:"documentOnTypeFormattingProvider"`
}

type renameOptions struct {
	PrepareProvider bool `json:"prepareProvider"`
}

type codeActionOptions struct {
	CodeActionKinds []string `json:"codeActionKinds"`
	ResolveProvider bool     `json:"resolveProvider"`
}

type codeLensOptions struct {
	ResolveProvider bool `json:"resolveProvider"`
}

type completionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type signatureHelpOptions struct {
	TriggerCharacters   []string `json:"triggerCharacters"`
	RetriggerCharacters []string `json:"retriggerCharacters"`
}

type onTypeFormattingOptions struct {
	FirstTriggerCharacter string   `json:"firstTriggerCharacter"`
	MoreTriggerCharacter  []string `json:"moreTriggerCharacter"`
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type contentChange struct {
	Range       *protocol.Range `json:"range,omitempty"`
	RangeLength *int            `json:"rangeLength,omitempty"`
	Text        string          `json:"text"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                 `json:"contentChanges"`
}

type didSaveParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type location struct {
	URI   protocol.DocumentURI `json:"uri"`
	Range protocol.Range       `json:"range"`
}

type hoverResult struct {
	Contents markupContent `json:"contents"`
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type documentHighlightResult struct {
	Range protocol.Range `json:"range"`
	Kind  int            `json:"kind"`
}

type symbolInformation struct {
	Name          string   `json:"name"`
	Kind          int      `json:"kind"`
	Location      location `json:"location"`
	ContainerName string   `json:"containerName,omitempty"`
}

type renameParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position      `json:"position"`
	NewName      string                 `json:"newName"`
}

type textEdit struct {
	Range   protocol.Range `json:"range"`
	NewText string         `json:"newText"`
}

type workspaceEdit struct {
	Changes         map[protocol.DocumentURI][]textEdit `json:"changes,omitempty"`
	DocumentChanges []textDocumentEdit                  `json:"documentChanges,omitempty"`
}

// optionalVersionedTextDocumentIdentifier is versionedTextDocumentIdentifier
// with a nullable version, per the LSP spec's OptionalVersionedTextDocumentIdentifier:
// nil when the document's open version isn't tracked by this server.
type optionalVersionedTextDocumentIdentifier struct {
	URI     protocol.DocumentURI `json:"uri"`
	Version *int32               `json:"version"`
}

type textDocumentEdit struct {
	TextDocument optionalVersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []textEdit                              `json:"edits"`
}

type codeActionContext struct {
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

type codeActionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range         `json:"range"`
	Context      codeActionContext      `json:"context"`
}

type codeAction struct {
	Title       string         `json:"title"`
	Kind        string         `json:"kind,omitempty"`
	IsPreferred bool           `json:"isPreferred,omitempty"`
	Edit        *workspaceEdit `json:"edit,omitempty"`
	Data        any            `json:"data,omitempty"`
}

type codeActionData struct {
	DocumentURI protocol.DocumentURI `json:"documentUri"`
	Range       protocol.Range       `json:"range"`
	FixID       string               `json:"fixId,omitempty"`
}

type codeLens struct {
	Range   protocol.Range `json:"range"`
	Command *command       `json:"command,omitempty"`
	Data    any            `json:"data,omitempty"`
}

type codeLensData struct {
	DocumentURI protocol.DocumentURI `json:"documentUri"`
	Position    protocol.Position    `json:"position"`
}

type command struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// insertTextFormatPlainText is InsertTextFormat.PlainText from the LSP
// completion spec; this backend never emits snippet placeholders.
const insertTextFormatPlainText = 1

type completionItem struct {
	Label            string `json:"label"`
	Kind             int    `json:"kind,omitempty"`
	Documentation    string `json:"documentation,omitempty"`
	InsertTextFormat int    `json:"insertTextFormat,omitempty"`
}

type completionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []completionItem `json:"items"`
}

type documentFormattingParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type documentRangeFormattingParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range         `json:"range"`
}

type documentOnTypeFormattingParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position      `json:"position"`
	Ch           string                 `json:"ch"`
}

type workspaceSymbolParams struct {
	Query string `json:"query"`
}

type metadataParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type metadataResult struct {
	ProjectName  string `json:"projectName"`
	AssemblyName string `json:"assemblyName"`
	SymbolName   string `json:"symbolName"`
	Source       string `json:"source"`
}
