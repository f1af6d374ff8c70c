package telegram

import (
	"encoding/json"
	"testing"
)

func TestUpdate_JSONRoundTrip(t *testing.T) {
	raw := `{
		"update_id": 123456789,
		"message": {
			"message_id": 1,
			"from": {"id": 987654321, "is_bot": false, "first_name": "Karim"},
			"chat": {"id": 987654321, "type": "private"},
			"date": 1709827200,
			"text": "Hello agent"
		}
	}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if u.UpdateID != 123456789 {
		t.Errorf("UpdateID = %d, want 123456789", u.UpdateID)
	}
	if u.Message == nil {
		t.Fatal("Message is nil")
	}
	if u.Message.MessageID != 1 {
		t.Errorf("MessageID = %d, want 1", u.Message.MessageID)
	}
	if u.Message.From == nil {
		t.Fatal("From is nil")
	}
	if u.Message.From.ID != 987654321 {
		t.Errorf("From.ID = %d, want 987654321", u.Message.From.ID)
	}
	if u.Message.Chat.ID != 987654321 {
		t.Errorf("Chat.ID = %d, want 987654321", u.Message.Chat.ID)
	}
	if u.Message.Text != "Hello agent" {
		t.Errorf("Text = %q, want %q", u.Message.Text, "Hello agent")
	}
	if u.CallbackQuery != nil {
		t.Error("CallbackQuery should be nil for a message update")
	}
}

func TestUpdate_WithDocument(t *testing.T) {
	raw := `{
		"update_id": 100,
		"message": {
			"message_id": 2,
			"chat": {"id": 111, "type": "private"},
			"document": {"file_id": "doc123", "file_name": "notes.txt", "mime_type": "text/plain"}
		}
	}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if u.Message.Document == nil {
		t.Fatal("Document is nil")
	}
	if u.Message.Document.FileID != "doc123" {
		t.Errorf("FileID = %q, want doc123", u.Message.Document.FileID)
	}
	if u.Message.Document.FileName != "notes.txt" {
		t.Errorf("FileName = %q, want notes.txt", u.Message.Document.FileName)
	}
	if u.Message.Document.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want text/plain", u.Message.Document.MimeType)
	}
}

func TestUpdate_WithPhoto(t *testing.T) {
	raw := `{
		"update_id": 101,
		"message": {
			"message_id": 3,
			"chat": {"id": 111, "type": "private"},
			"photo": [
				{"file_id": "small", "width": 90, "height": 90},
				{"file_id": "large", "width": 800, "height": 600}
			]
		}
	}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(u.Message.Photo) != 2 {
		t.Fatalf("Photo len = %d, want 2", len(u.Message.Photo))
	}
	if u.Message.Photo[1].FileID != "large" {
		t.Errorf("Photo[1].FileID = %q, want large", u.Message.Photo[1].FileID)
	}
}

func TestUpdate_WithCallbackQuery(t *testing.T) {
	raw := `{
		"update_id": 102,
		"callback_query": {
			"id": "cbq1",
			"data": "confirm:42",
			"message": {"message_id": 5, "chat": {"id": 111, "type": "private"}}
		}
	}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if u.Message != nil {
		t.Error("Message should be nil for a callback update")
	}
	if u.CallbackQuery == nil {
		t.Fatal("CallbackQuery is nil")
	}
	if u.CallbackQuery.Data != "confirm:42" {
		t.Errorf("Data = %q, want confirm:42", u.CallbackQuery.Data)
	}
	if u.CallbackQuery.Message.MessageID != 5 {
		t.Errorf("Message.MessageID = %d, want 5", u.CallbackQuery.Message.MessageID)
	}
}

func TestUpdate_WithoutMessage(t *testing.T) {
	raw := `{"update_id": 200}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.UpdateID != 200 {
		t.Errorf("UpdateID = %d, want 200", u.UpdateID)
	}
	if u.Message != nil {
		t.Error("Message should be nil")
	}
}

func TestAPIResponse_OkWithResult(t *testing.T) {
	raw := `{"ok": true, "result": {"message_id": 9, "chat": {"id": 1}}}`

	var resp apiResponse[Message]
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Ok {
		t.Error("Ok = false, want true")
	}
	if resp.Result.MessageID != 9 {
		t.Errorf("MessageID = %d, want 9", resp.Result.MessageID)
	}
}

func TestAPIResponse_NotOkWithDescription(t *testing.T) {
	raw := `{"ok": false, "description": "Unauthorized"}`

	var resp apiResponse[Message]
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Ok {
		t.Error("Ok = true, want false")
	}
	if resp.Description != "Unauthorized" {
		t.Errorf("Description = %q, want Unauthorized", resp.Description)
	}
}

func TestSendMessageRequest_MarshalOmitsEmptyFields(t *testing.T) {
	req := sendMessageRequest{ChatID: 1, Text: "hi"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(data, &asMap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := asMap["message_id"]; present {
		t.Error("message_id should be omitted when zero")
	}
	if _, present := asMap["reply_markup"]; present {
		t.Error("reply_markup should be omitted when nil")
	}
}
