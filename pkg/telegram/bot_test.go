package telegram

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "api error", status: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chatID, text string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/sendMessage", r.URL.Path)
				require.NoError(t, r.ParseForm())
				chatID = r.PostForm.Get("chat_id")
				text = r.PostForm.Get("text")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewBotWithURL(srv.URL).SendMessage("-100", "Nuevo evento registrado")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "-100", chatID)
			assert.Equal(t, "Nuevo evento registrado", text)
		})
	}
}
