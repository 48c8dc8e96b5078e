package entity

// Prompts are the fixed instructions of the pipeline. Placeholders
// {question} and {context} are substituted verbatim.
type Prompts struct {
	CondenseSystem string `yaml:"condense_system"`
	CondenseUser   string `yaml:"condense_user"`
	AnswerSystem   string `yaml:"answer_system"`
	AnswerUser     string `yaml:"answer_user"`
	NoContextReply string `yaml:"no_context_reply"`
}

const NoContextReply = "The source text contains no relevant information."

func DefaultPrompts() Prompts {
	return Prompts{
		CondenseSystem: "Given the conversation history and a follow-up question, rewrite the follow-up " +
			"into a standalone question that can be understood without the history. " +
			"Replace pronouns and references with the entities they refer to. " +
			"Do not answer the question, return only the rewritten question.",
		CondenseUser: "Rephrase the following question as a standalone question:\n{question}",
		AnswerSystem: "You are an assistant that answers questions strictly from the source text below. " +
			"Use only the information in the source text. " +
			"If the source text does not contain information relevant to the question, reply exactly: \"{no_context}\" " +
			"Never make up facts.\n\n" +
			"Source text:\n{context}",
		AnswerUser:     "Now, based on the source text, answer the following question:\n{question}",
		NoContextReply: NoContextReply,
	}
}

// Merge returns p with every empty field taken from defaults.
func (p Prompts) Merge(defaults Prompts) Prompts {
	if p.CondenseSystem == "" {
		p.CondenseSystem = defaults.CondenseSystem
	}
	if p.CondenseUser == "" {
		p.CondenseUser = defaults.CondenseUser
	}
	if p.AnswerSystem == "" {
		p.AnswerSystem = defaults.AnswerSystem
	}
	if p.AnswerUser == "" {
		p.AnswerUser = defaults.AnswerUser
	}
	if p.NoContextReply == "" {
		p.NoContextReply = defaults.NoContextReply
	}
	return p
}
