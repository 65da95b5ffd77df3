package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/roomly/roomly-server/internal/assets"
	"github.com/roomly/roomly-server/internal/types"
)

type InitChatRequest struct {
	RecipientId int `json:"recipientId"`
}

type InitChatResponse struct {
	ChatId int `json:"chatId"`
}

type SendMessageRequest struct {
	RecipientId int    `json:"recipientId"`
	Text        string `json:"text"`
}

type MarkReadResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

func (s *RoomlyApp) initChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req InitChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	c, err := s.chats.FindOrCreateChat(r.Context(), userId, req.RecipientId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, InitChatResponse{ChatId: c.Id})
}

func (s *RoomlyApp) listChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chats, err := s.chats.ListChats(r.Context(), userId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *RoomlyApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := chatIdParam(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msgs, err := s.chats.ListMessages(r.Context(), chatId, userId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

// sendMessage delivers a text message to a recipient, opening the chat
// between the two users first if needed.
func (s *RoomlyApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	c, err := s.chats.FindOrCreateChat(r.Context(), userId, req.RecipientId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.chats.AppendMessage(r.Context(), c.Id, userId, req.Text, types.MessageText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *RoomlyApp) uploadFile(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// room for the multipart framing around a maximum size file
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errResp := NewRequestEntityTooLargeError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer r.MultipartForm.RemoveAll()

	chatId, err := strconv.Atoi(r.FormValue("chatId"))
	if err != nil || chatId <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	// nothing is stored for callers who may not post in the chat
	if err := s.chats.ChatParticipant(r.Context(), chatId, userId); err != nil {
		s.writeError(w, r, err)
		return
	}

	asset, err := s.store.Save(r.Context(), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.chats.AppendMessage(r.Context(), chatId, userId, asset.URL, asset.Kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *RoomlyApp) markRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := chatIdParam(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	n, err := s.chats.MarkRead(r.Context(), chatId, userId, time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{Success: true, Count: n})
}

func chatIdParam(r *http.Request) (int, error) {
	chatId, err := strconv.Atoi(r.PathValue("chatId"))
	if err != nil {
		return 0, err
	}
	if chatId <= 0 {
		return 0, errors.New("chat id must be positive")
	}
	return chatId, nil
}
