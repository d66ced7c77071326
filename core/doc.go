// Package core provides the foundational types of KnowledgeNet:
//
//   - Events and the ChatHistory log exchanged between callers and agents
//   - The Exchange wire record and its JSON codec
//   - The Agent, Answerer, Directory and Transport contracts
//   - Sentinel errors and the call depth guard
//
// Concrete agents, transports and registries live in their own packages and
// depend only on the small interfaces defined here.
package core
