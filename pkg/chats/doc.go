// Package chats provides the provider-agnostic data model for chat model
// prompts and replies.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/chainkit/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/chainkit/pkg/chats/content]: content parts carried by a message
//   - [github.com/germanamz/chainkit/pkg/chats/message]: messages composed of a role, sender, and content parts
//   - [github.com/germanamz/chainkit/pkg/chats/chat]: ordered conversation container
//
// Nothing here talks to an API. Prompt templates produce these types and
// provider adapters consume them.
package chats
