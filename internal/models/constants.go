package models

const (
	ContextSeparator = "\n\n"
	UploadedStatus   = "Successfully Uploaded"
	HealthCheckQuery = "Test query"

	// metadata keys stored next to every vector
	MetaSource     = "source"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
	MetaLength     = "length"
	MetaSeq        = "seq"
)

var (
	AnswerPromptTemplate = `<s>[INST] You are a technical assistant, good at searching documents. If you do not have an answer from the provided information, say so. [/INST] </s>
[INST] {{.query}}
        Context: {{.context}}
        Answer:
[/INST]
`
)
