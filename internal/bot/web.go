/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package bot

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"Unbewohnte/TheTruth/internal/state"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

const (
	authCookie     = "auth_token"
	maxUploadBytes = 32 << 20
)

//go:embed web
var webFiles embed.FS

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.DefinitionList),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// RenderMarkdown converts command output to HTML. Raw HTML coming from
// sources or the model is not passed through.
func RenderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type WebMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Phase   string `json:"phase,omitempty"`
	Busy    bool   `json:"busy,omitempty"`
}

type WebClient struct {
	conn *websocket.Conn
	send chan WebMessage
}

type WebServer struct {
	bot      *Bot
	upgrader websocket.Upgrader
	clients  map[*WebClient]bool
	mu       sync.Mutex
	uploads  string
}

func NewWebServer(bot *Bot) *WebServer {
	return &WebServer{
		bot: bot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*WebClient]bool),
		uploads: filepath.Join(os.TempDir(), "thetruth-uploads"),
	}
}

func (ws *WebServer) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", ws.handleWebSocket)
	r.HandleFunc("/login", ws.handleLogin).Methods("POST")
	r.HandleFunc("/upload", ws.handleUpload).Methods("POST")
	r.HandleFunc("/download/xlsx", ws.handleDownloadXLSX).Methods("GET")

	static, _ := fs.Sub(webFiles, "web")
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	return r
}

// Start serves the web UI until ctx is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", ws.bot.conf.Web.Port),
		Handler:           ws.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	updates, unsubscribe := ws.bot.store.Subscribe()
	defer unsubscribe()
	go ws.forwardState(updates)

	errs := make(chan error, 1)
	go func() {
		zap.L().Info("web: server started", zap.Uint("port", ws.bot.conf.Web.Port))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return eris.Wrap(err, "web: serve")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// forwardState tells every client what the application is busy with.
func (ws *WebServer) forwardState(updates <-chan state.State) {
	for snapshot := range updates {
		msg := WebMessage{
			Type:  "state",
			Phase: string(snapshot.Phase),
			Busy:  snapshot.Busy,
		}
		if snapshot.Error != "" {
			msg.Content = snapshot.Error
		}
		ws.broadcast(msg)
	}
}

func (ws *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username != ws.bot.conf.Web.Username || password != ws.bot.conf.Web.Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := ws.generateJWT()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
}

// authorized checks the JWT cookie and that it was issued for the
// configured user.
func (ws *WebServer) authorized(r *http.Request) bool {
	cookie, err := r.Cookie(authCookie)
	if err != nil {
		return false
	}

	token, err := ws.validateJWT(cookie.Value)
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	return ok && claims["username"] == ws.bot.conf.Web.Username
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !ws.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("web: websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WebClient{
		conn: conn,
		send: make(chan WebMessage, 256),
	}
	ws.addClient(client)

	go client.writePump()
	go client.readPump(ws)
}

func (ws *WebServer) addClient(client *WebClient) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.clients[client] = true
	zap.L().Debug("web: client connected")
}

func (ws *WebServer) removeClient(client *WebClient) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.dropClient(client)
}

// dropClient must be called with mu held.
func (ws *WebServer) dropClient(client *WebClient) {
	if _, ok := ws.clients[client]; ok {
		delete(ws.clients, client)
		close(client.send)
		zap.L().Debug("web: client disconnected")
	}
}

func (ws *WebServer) broadcast(msg WebMessage) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for client := range ws.clients {
		select {
		case client.send <- msg:
		default:
			ws.dropClient(client)
		}
	}
}

func (c *WebClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			break
		}
	}
}

func (c *WebClient) readPump(ws *WebServer) {
	defer func() {
		ws.removeClient(c)
		c.conn.Close()
	}()

	for {
		_, msgBytes, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WebMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "command":
			go ws.handleCommand(msg.Content)
		}
	}
}

func (ws *WebServer) handleCommand(cmd string) {
	zap.L().Info("web: command", zap.String("input", cmd))

	name, args := splitCommand(cmd)
	if name == "xlsx" {
		kind := strings.TrimSpace(args)
		if _, _, err := ws.bot.exportXLSX(kind); err != nil {
			ws.SendLog(err.Error())
			return
		}

		ws.SendResponse(fmt.Sprintf(`<div class="download-container">
            <a href="/download/xlsx?kind=%s" target="_blank" class="download-btn">Download XLSX</a>
        </div>`, kind))
		return
	}

	response, err := ws.bot.Execute(cmd)
	if err != nil {
		ws.SendLog(err.Error())
		return
	}
	if response != "" {
		ws.SendResponse(response)
	}
}

func (ws *WebServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !ws.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := ws.saveUpload(file, filepath.Ext(header.Filename))
	if err != nil {
		zap.L().Error("web: upload failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go func() {
		defer os.Remove(path)
		response, err := ws.bot.AnalyzeUpload(path)
		if err != nil {
			ws.SendLog(err.Error())
		}
		if response != "" {
			ws.SendResponse(response)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

func (ws *WebServer) saveUpload(file io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(ws.uploads, 0o700); err != nil {
		return "", eris.Wrap(err, "web: create upload dir")
	}

	path := filepath.Join(ws.uploads, uuid.New().String()+strings.ToLower(ext))
	out, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "web: create upload")
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", eris.Wrap(err, "web: write upload")
	}

	return path, nil
}

func (ws *WebServer) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	if !ws.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	name, data, err := ws.bot.exportXLSX(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	_, _ = w.Write(data)
}

func (ws *WebServer) SendResponse(result string) {
	html, err := RenderMarkdown(result)
	if err != nil {
		html = strings.ReplaceAll(result, "\n", "<br>")
	}

	ws.broadcast(WebMessage{
		Type:    "analysis",
		Content: html,
	})
}

func (ws *WebServer) SendLog(log string) {
	ws.broadcast(WebMessage{
		Type:    "log",
		Content: log,
	})
}

func (ws *WebServer) generateJWT() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": ws.bot.conf.Web.Username,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
		"jti":      uuid.New().String(),
	})

	return token.SignedString([]byte(ws.bot.conf.Web.JWTSecret))
}

func (ws *WebServer) validateJWT(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ws.bot.conf.Web.JWTSecret), nil
	})
}
