// Package mcp serves the question answering pipeline over the Model Context
// Protocol. Assistants call the ask tool for cited answers and
// search_documents for raw passages, and read sercha:// resources to see
// which documents are indexed.
package mcp
