// Package fakelark provides a fake Feishu Open Platform HTTP server for
// testing. It speaks the JSON envelope protocol of the document, wiki, drive,
// search and auth endpoints, backed by an in-memory document store.
//
// Tokens issued by the auth endpoints live in a TTL cache, so expiry-driven
// refresh behavior is testable by shrinking the TTL or flushing the cache.
// Scripted responses can be queued ahead of the normal handlers to inject
// failures such as rate limiting or invalid envelopes.
package fakelark

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/feishudocs/feishu.go/internal/rand"
)

// Response codes mirrored from the real store.
const (
	codeOK                 = 0
	codeTenantTokenInvalid = 99991663
	codeTooManyRequests    = 99991400
	codeInvalidParam       = 1770001
	codeNotFound           = 1770002
)

const defaultTokenTTL = 2 * time.Hour

// ScriptedResponse is one canned response consumed by the next matching
// request before the normal handler runs.
type ScriptedResponse struct {
	// Status is the HTTP status to send; zero means 200.
	Status int
	// Code and Msg fill the response envelope when Body is nil.
	Code int
	Msg  string
	// Body, when set, is sent verbatim instead of an envelope.
	Body []byte
}

// RecordedRequest is one request the server has seen, with its arrival time
// so tests can assert on retry spacing.
type RecordedRequest struct {
	Method string
	Path   string
	At     time.Time
}

type blockRec struct {
	id       string
	parentID string
	typ      string
	payload  map[string]json.RawMessage
}

type document struct {
	id       string
	title    string
	revision int
	// children maps a parent block id to its ordered child ids. The document
	// id itself is the root parent.
	children map[string][]string
	blocks   map[string]*blockRec
}

type wikiSpace struct {
	SpaceID     string `json:"space_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type wikiNode struct {
	NodeToken       string `json:"node_token"`
	ObjToken        string `json:"obj_token"`
	ObjType         string `json:"obj_type"`
	ParentNodeToken string `json:"parent_node_token,omitempty"`
	Title           string `json:"title"`
	HasChild        bool   `json:"has_child,omitempty"`
}

type driveFile struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ParentToken string `json:"parent_token,omitempty"`
}

type searchHit struct {
	DocsToken string `json:"docs_token"`
	DocsType  string `json:"docs_type"`
	Title     string `json:"title"`
}

// Server is a fake Feishu Open Platform server. Create one with NewServer,
// point the client's base URL at URL(), and Close it when done.
type Server struct {
	ts       *httptest.Server
	sessions *cache.Cache

	mu           sync.Mutex
	tokenTTL     time.Duration
	tokenFetches int
	docs         map[string]*document
	spaces       []wikiSpace
	nodes        map[string][]wikiNode // space id -> nodes
	rootFolder   string
	files        map[string][]driveFile // folder token -> entries
	hits         []searchHit
	boards       map[string][]json.RawMessage // whiteboard id -> nodes
	scripts      []scriptEntry
	requests     []RecordedRequest
}

type scriptEntry struct {
	method     string
	pathPrefix string
	resp       ScriptedResponse
}

// NewServer starts a fake server on a random local port.
func NewServer() *Server {
	s := &Server{
		sessions:   cache.New(defaultTokenTTL, time.Minute),
		tokenTTL:   defaultTokenTTL,
		docs:       make(map[string]*document),
		nodes:      make(map[string][]wikiNode),
		rootFolder: "fldcn" + rand.String(16),
		files:      make(map[string][]driveFile),
		boards:     make(map[string][]json.RawMessage),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v3/tenant_access_token/internal", s.handleTenantToken)
	mux.HandleFunc("POST /authen/v1/oidc/access_token", s.handleUserToken)
	mux.HandleFunc("POST /authen/v1/oidc/refresh_access_token", s.handleUserToken)

	mux.HandleFunc("POST /docx/v1/documents/", s.authed(s.handleCreateDocument))
	mux.HandleFunc("GET /docx/v1/documents/{docID}", s.authed(s.handleGetDocument))
	mux.HandleFunc("GET /docx/v1/documents/{docID}/blocks/{blockID}/children", s.authed(s.handleListChildren))
	mux.HandleFunc("POST /docx/v1/documents/{docID}/blocks/{blockID}/children", s.authed(s.handleCreateChildren))
	mux.HandleFunc("POST /docx/v1/documents/{docID}/blocks/batch_create", s.authed(s.handleBatchCreate))
	mux.HandleFunc("PATCH /docx/v1/documents/{docID}/blocks/{blockID}", s.authed(s.handleUpdateBlock))
	mux.HandleFunc("DELETE /docx/v1/documents/{docID}/blocks/{blockID}", s.authed(s.handleDeleteBlock))

	mux.HandleFunc("GET /wiki/v2/spaces", s.authed(s.handleListSpaces))
	mux.HandleFunc("GET /wiki/v2/spaces/{spaceID}/nodes", s.authed(s.handleListNodes))
	mux.HandleFunc("POST /wiki/v2/spaces/{spaceID}/nodes", s.authed(s.handleCreateNode))

	mux.HandleFunc("GET /drive/explorer/v2/root_folder/meta", s.authed(s.handleRootFolder))
	mux.HandleFunc("GET /drive/v1/files", s.authed(s.handleListFiles))
	mux.HandleFunc("POST /drive/v1/files/create_folder", s.authed(s.handleCreateFolder))
	mux.HandleFunc("POST /drive/v1/medias/upload_all", s.authed(s.handleUpload))

	mux.HandleFunc("POST /search/v2/message", s.authed(s.handleSearch))
	mux.HandleFunc("GET /board/v1/whiteboards/{boardID}/nodes", s.authed(s.handleWhiteboardNodes))

	s.ts = httptest.NewServer(s.record(mux))
	return s
}

// URL is the base URL to configure the client with.
func (s *Server) URL() string { return s.ts.URL }

// Close shuts the server down.
func (s *Server) Close() { s.ts.Close() }

// SetTokenTTL sets the lifetime reported for subsequently issued tokens.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// ExpireTokens invalidates every issued token, as if they all aged out.
func (s *Server) ExpireTokens() {
	s.sessions.Flush()
}

// TokenFetches returns how many token requests the server has served.
func (s *Server) TokenFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenFetches
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests matched the method and path prefix.
func (s *Server) RequestCount(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Script queues canned responses for requests matching method and pathPrefix.
// Each matching request consumes one response in order; once drained, the
// normal handler takes over again.
func (s *Server) Script(method, pathPrefix string, responses ...ScriptedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, resp := range responses {
		s.scripts = append(s.scripts, scriptEntry{method: method, pathPrefix: pathPrefix, resp: resp})
	}
}

// AddDocument seeds a document with the given title and returns its id.
func (s *Server) AddDocument(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDocumentLocked(title).id
}

// AddBlocks seeds typed text blocks under the given parent (empty means the
// document root) and returns their ids.
func (s *Server) AddBlocks(docID, parentID string, contents ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[docID]
	if doc == nil {
		return nil
	}
	if parentID == "" {
		parentID = docID
	}

	ids := make([]string, 0, len(contents))
	for _, content := range contents {
		payload, _ := json.Marshal(map[string]any{
			"elements": []map[string]any{{"text_run": map[string]any{"content": content}}},
		})
		rec := &blockRec{
			id:       newBlockID(),
			parentID: parentID,
			typ:      "text",
			payload:  map[string]json.RawMessage{"text": payload},
		}
		doc.blocks[rec.id] = rec
		doc.children[parentID] = append(doc.children[parentID], rec.id)
		ids = append(ids, rec.id)
	}
	doc.revision++
	return ids
}

// AddRawBlock seeds a block of an arbitrary type with a verbatim payload
// under the given key, for exercising unknown-type handling.
func (s *Server) AddRawBlock(docID, parentID, blockType string, payload json.RawMessage) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[docID]
	if doc == nil {
		return ""
	}
	if parentID == "" {
		parentID = docID
	}

	rec := &blockRec{
		id:       newBlockID(),
		parentID: parentID,
		typ:      blockType,
		payload:  map[string]json.RawMessage{blockType: payload},
	}
	doc.blocks[rec.id] = rec
	doc.children[parentID] = append(doc.children[parentID], rec.id)
	doc.revision++
	return rec.id
}

// Revision returns a document's current revision id.
func (s *Server) Revision(docID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc := s.docs[docID]; doc != nil {
		return doc.revision
	}
	return 0
}

// ChildOrder returns the ordered child ids under a parent block.
func (s *Server) ChildOrder(docID, parentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[docID]
	if doc == nil {
		return nil
	}
	if parentID == "" {
		parentID = docID
	}
	out := make([]string, len(doc.children[parentID]))
	copy(out, doc.children[parentID])
	return out
}

// BlockText returns the plain content of a seeded or created text block.
func (s *Server) BlockText(docID, blockID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[docID]
	if doc == nil {
		return ""
	}
	rec := doc.blocks[blockID]
	if rec == nil {
		return ""
	}
	var payload struct {
		Elements []struct {
			TextRun struct {
				Content string `json:"content"`
			} `json:"text_run"`
		} `json:"elements"`
	}
	_ = json.Unmarshal(rec.payload[rec.typ], &payload)
	text := ""
	for _, el := range payload.Elements {
		text += el.TextRun.Content
	}
	return text
}

// AddWikiSpace seeds a wiki space and returns its id.
func (s *Server) AddWikiSpace(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strconv.Itoa(7000000000 + len(s.spaces))
	s.spaces = append(s.spaces, wikiSpace{SpaceID: id, Name: name})
	return id
}

// AddSearchHit seeds one document search result.
func (s *Server) AddSearchHit(token, docsType, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, searchHit{DocsToken: token, DocsType: docsType, Title: title})
}

// AddWhiteboardNode seeds one opaque node on a whiteboard.
func (s *Server) AddWhiteboardNode(boardID string, node json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[boardID] = append(s.boards[boardID], node)
}

// RootFolderToken returns the seeded root folder token.
func (s *Server) RootFolderToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootFolder
}

func (s *Server) addDocumentLocked(title string) *document {
	u, _ := uuid.NewV4()
	doc := &document{
		id:       "doxcn" + strings.ReplaceAll(u.String(), "-", "")[:16],
		title:    title,
		revision: 1,
		children: make(map[string][]string),
		blocks:   make(map[string]*blockRec),
	}
	s.docs[doc.id] = doc
	return doc
}

func newBlockID() string {
	return "blk" + rand.String(18)
}

// record wraps the mux with request recording and scripted responses.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, At: time.Now()})
		var scripted *ScriptedResponse
		for i, entry := range s.scripts {
			if entry.method == r.Method && strings.HasPrefix(r.URL.Path, entry.pathPrefix) {
				resp := entry.resp
				scripted = &resp
				s.scripts = append(s.scripts[:i], s.scripts[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if scripted != nil {
			status := scripted.Status
			if status == 0 {
				status = http.StatusOK
			}
			if scripted.Body != nil {
				w.WriteHeader(status)
				_, _ = w.Write(scripted.Body)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": scripted.Code, "msg": scripted.Msg})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authed rejects requests whose bearer token is not a live session.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeEnvelope(w, codeTenantTokenInvalid, "missing access token", nil)
			return
		}
		if _, ok := s.sessions.Get(token); !ok {
			writeEnvelope(w, codeTenantTokenInvalid, "access token invalid or expired", nil)
			return
		}
		next(w, r)
	}
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"code": code, "msg": msg}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, codeOK, "success", data)
}

func (s *Server) handleTenantToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppID     string `json:"app_id"`
		AppSecret string `json:"app_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppID == "" || req.AppSecret == "" {
		writeEnvelope(w, codeInvalidParam, "app_id and app_secret required", nil)
		return
	}

	s.mu.Lock()
	s.tokenFetches++
	ttl := s.tokenTTL
	s.mu.Unlock()

	token := "t-" + rand.String(24)
	s.sessions.Set(token, "tenant", ttl)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":                codeOK,
		"msg":                 "ok",
		"tenant_access_token": token,
		"expire":              int(ttl.Seconds()),
	})
}

func (s *Server) handleUserToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GrantType    string `json:"grant_type"`
		Code         string `json:"code"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad grant request", nil)
		return
	}
	if req.GrantType == "authorization_code" && req.Code == "" {
		writeEnvelope(w, codeInvalidParam, "authorization code required", nil)
		return
	}
	if req.GrantType == "refresh_token" && req.RefreshToken == "" {
		writeEnvelope(w, codeInvalidParam, "refresh token required", nil)
		return
	}

	s.mu.Lock()
	s.tokenFetches++
	ttl := s.tokenTTL
	s.mu.Unlock()

	token := "u-" + rand.String(24)
	s.sessions.Set(token, "user", ttl)

	writeOK(w, map[string]any{
		"access_token":  token,
		"refresh_token": "r-" + rand.String(24),
		"expires_in":    int(ttl.Seconds()),
	})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		FolderToken string `json:"folder_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	doc := s.addDocumentLocked(req.Title)
	s.mu.Unlock()

	writeOK(w, map[string]any{"document": map[string]any{
		"document_id": doc.id,
		"revision_id": doc.revision,
		"title":       doc.title,
	}})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.docs[r.PathValue("docID")]
	s.mu.Unlock()

	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}
	writeOK(w, map[string]any{"document": map[string]any{
		"document_id": doc.id,
		"revision_id": doc.revision,
		"title":       doc.title,
	}})
}

// blockJSON renders a stored block in wire shape.
func (doc *document) blockJSON(rec *blockRec) map[string]any {
	out := map[string]any{
		"block_id":   rec.id,
		"parent_id":  rec.parentID,
		"block_type": rec.typ,
	}
	if kids := doc.children[rec.id]; len(kids) > 0 {
		out["children"] = kids
	}
	for key, payload := range rec.payload {
		out[key] = payload
	}
	return out
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[r.PathValue("docID")]
	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}
	parentID := r.PathValue("blockID")
	ids := doc.children[parentID]

	pageSize := 100
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page_token"); v != "" {
		offset, _ = strconv.Atoi(v)
	}
	if offset > len(ids) {
		offset = len(ids)
	}

	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	items := make([]map[string]any, 0, end-offset)
	for _, id := range ids[offset:end] {
		items = append(items, doc.blockJSON(doc.blocks[id]))
	}

	data := map[string]any{"items": items, "has_more": end < len(ids)}
	if end < len(ids) {
		data["page_token"] = strconv.Itoa(end)
	}
	writeOK(w, data)
}

// insertChildren decodes raw child blocks, stores them under parentID at
// index (-1 appends) and returns their wire shapes in creation order.
func (doc *document) insertChildren(parentID string, children []json.RawMessage, index int) ([]map[string]any, error) {
	created := make([]map[string]any, 0, len(children))
	for _, raw := range children {
		var probe struct {
			BlockType string `json:"block_type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.BlockType == "" {
			return nil, fmt.Errorf("child missing block_type")
		}

		var full map[string]json.RawMessage
		_ = json.Unmarshal(raw, &full)
		delete(full, "block_id")
		delete(full, "parent_id")
		delete(full, "block_type")
		delete(full, "children")

		rec := &blockRec{
			id:       newBlockID(),
			parentID: parentID,
			typ:      probe.BlockType,
			payload:  full,
		}
		doc.blocks[rec.id] = rec

		siblings := doc.children[parentID]
		if index < 0 || index >= len(siblings) {
			doc.children[parentID] = append(siblings, rec.id)
		} else {
			siblings = append(siblings, "")
			copy(siblings[index+1:], siblings[index:])
			siblings[index] = rec.id
			doc.children[parentID] = siblings
			index++
		}
		created = append(created, doc.blockJSON(rec))
	}
	doc.revision++
	return created, nil
}

func (s *Server) handleCreateChildren(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[r.PathValue("docID")]
	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}

	var req struct {
		Children []json.RawMessage `json:"children"`
		Index    int               `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad request body", nil)
		return
	}

	created, err := doc.insertChildren(r.PathValue("blockID"), req.Children, req.Index)
	if err != nil {
		writeEnvelope(w, codeInvalidParam, err.Error(), nil)
		return
	}
	writeOK(w, map[string]any{"blocks": created})
}

func (s *Server) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[r.PathValue("docID")]
	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}

	var req struct {
		Requests []struct {
			ParentBlockID string            `json:"parent_block_id"`
			Children      []json.RawMessage `json:"children"`
			Index         int               `json:"index"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad request body", nil)
		return
	}

	var all []map[string]any
	for _, entry := range req.Requests {
		if len(entry.Children) > 50 {
			writeEnvelope(w, codeInvalidParam, "too many children in one batch", nil)
			return
		}
		created, err := doc.insertChildren(entry.ParentBlockID, entry.Children, entry.Index)
		if err != nil {
			writeEnvelope(w, codeInvalidParam, err.Error(), nil)
			return
		}
		all = append(all, created...)
	}
	writeOK(w, map[string]any{"blocks": all})
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[r.PathValue("docID")]
	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}
	rec := doc.blocks[r.PathValue("blockID")]
	if rec == nil {
		writeEnvelope(w, codeNotFound, "block not found", nil)
		return
	}

	var req map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad request body", nil)
		return
	}
	var typ string
	_ = json.Unmarshal(req["block_type"], &typ)
	if typ != "" && typ != rec.typ {
		writeEnvelope(w, codeInvalidParam,
			fmt.Sprintf("block type mismatch: have %s, got %s", rec.typ, typ), nil)
		return
	}
	if payload, ok := req[rec.typ]; ok {
		rec.payload[rec.typ] = payload
	}
	doc.revision++
	writeOK(w, map[string]any{"block": doc.blockJSON(rec)})
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[r.PathValue("docID")]
	if doc == nil {
		writeEnvelope(w, codeNotFound, "document not found", nil)
		return
	}
	id := r.PathValue("blockID")
	rec := doc.blocks[id]
	if rec == nil {
		writeEnvelope(w, codeNotFound, "block not found", nil)
		return
	}

	delete(doc.blocks, id)
	siblings := doc.children[rec.parentID]
	for i, sid := range siblings {
		if sid == id {
			doc.children[rec.parentID] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	delete(doc.children, id)
	doc.revision++
	writeOK(w, nil)
}

func (s *Server) handleListSpaces(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, map[string]any{"items": s.spaces, "has_more": false})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := r.URL.Query().Get("parent_node_token")
	var items []wikiNode
	for _, node := range s.nodes[r.PathValue("spaceID")] {
		if node.ParentNodeToken == parent {
			items = append(items, node)
		}
	}
	if items == nil {
		items = []wikiNode{}
	}
	writeOK(w, map[string]any{"items": items, "has_more": false})
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ObjType         string `json:"obj_type"`
		Title           string `json:"title"`
		ParentNodeToken string `json:"parent_node_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad request body", nil)
		return
	}

	s.mu.Lock()
	doc := s.addDocumentLocked(req.Title)
	node := wikiNode{
		NodeToken:       "wikcn" + rand.String(16),
		ObjToken:        doc.id,
		ObjType:         req.ObjType,
		ParentNodeToken: req.ParentNodeToken,
		Title:           req.Title,
	}
	spaceID := r.PathValue("spaceID")
	s.nodes[spaceID] = append(s.nodes[spaceID], node)
	s.mu.Unlock()

	writeOK(w, map[string]any{"node": node})
}

func (s *Server) handleRootFolder(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, map[string]any{"token": s.rootFolder, "id": s.rootFolder})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.files[r.URL.Query().Get("folder_token")]
	if files == nil {
		files = []driveFile{}
	}
	writeOK(w, map[string]any{"files": files, "has_more": false})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		FolderToken string `json:"folder_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeEnvelope(w, codeInvalidParam, "folder name required", nil)
		return
	}

	s.mu.Lock()
	token := "fldcn" + rand.String(16)
	s.files[req.FolderToken] = append(s.files[req.FolderToken], driveFile{
		Token:       token,
		Name:        req.Name,
		Type:        "folder",
		ParentToken: req.FolderToken,
	})
	s.mu.Unlock()

	writeOK(w, map[string]any{"token": token})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeEnvelope(w, codeInvalidParam, "bad multipart body", nil)
		return
	}
	if r.FormValue("file_name") == "" || r.FormValue("parent_node") == "" {
		writeEnvelope(w, codeInvalidParam, "file_name and parent_node required", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeEnvelope(w, codeInvalidParam, "file part required", nil)
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeEnvelope(w, codeInvalidParam, "unreadable file part", nil)
		return
	}

	writeOK(w, map[string]any{"file_token": "boxcn" + rand.String(16)})
}

func (s *Server) handleWhiteboardNodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.boards[r.PathValue("boardID")]
	if nodes == nil {
		nodes = []json.RawMessage{}
	}
	writeOK(w, map[string]any{"nodes": nodes})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query  string `json:"query"`
		Count  int    `json:"count"`
		Filter *struct {
			DocumentFormats []string `json:"document_formats"`
		} `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeEnvelope(w, codeInvalidParam, "query required", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []searchHit
	for _, hit := range s.hits {
		if !strings.Contains(strings.ToLower(hit.Title), strings.ToLower(req.Query)) {
			continue
		}
		if req.Filter != nil && len(req.Filter.DocumentFormats) > 0 {
			match := false
			for _, f := range req.Filter.DocumentFormats {
				if f == hit.DocsType {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		items = append(items, hit)
		if req.Count > 0 && len(items) >= req.Count {
			break
		}
	}
	if items == nil {
		items = []searchHit{}
	}
	writeOK(w, map[string]any{"items": items})
}
