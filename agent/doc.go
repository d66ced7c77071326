// Package agent implements the reply protocol and the built-in agent kinds.
//
// Every agent embeds *BaseAgent, which brackets a call with Call and Return
// events, hands the callee a private copy of the log and converts failures
// into the Return's error text. Concrete kinds only supply a core.Answerer:
//
//   - FixedAgent answers with a constant message
//   - ModelAgent sends the visible conversation to a model.Model
//   - RAGAgent answers from passages of a retrieval.Retriever
//   - RouterAgent forwards questions to the best-matching connected agents
//
// NewRemote builds a proxy whose calls travel over a transport instead.
package agent
