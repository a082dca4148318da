// Package feishu is a typed client for the Feishu (Lark) Open Platform
// document API.
//
// It covers documents and their block trees, batched block mutations, Wiki
// spaces and nodes, Drive folders, media upload, whiteboards and search.
// Every call is authorized with a cached tenant or user access token that is
// refreshed transparently before expiry, rate-limited responses are retried
// with exponential backoff, and a token rejected by the store triggers a
// single re-auth and retry of the originating call.
package feishu
