package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CtxSessionIDKey = "session_id" // string

	sessionIDValue = "sid"
	sessionMaxAge  = 30 * 24 * 60 * 60
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// NewSessionStore は署名付きcookieのストア。
func NewSessionStore(secret string) sessions.Store {
	return sessions.NewCookieStore([]byte(secret))
}

// SessionID はcookieからセッションIDを取り出して ctx に入れる。
// 無い・改ざんされている場合は新しく発行する。
// session.Middleware の後ろに置くこと。
func SessionID(cookieName string, secure bool, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//署名が合わないときもsessは新規として返る
			sess, err := session.Get(cookieName, c)
			if sess == nil {
				log.Error("session store failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("session error"))
			}

			sid, _ := sess.Values[sessionIDValue].(string)
			if sid == "" {
				sid = uuid.NewString()
				sess.Values[sessionIDValue] = sid
				sess.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   sessionMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				}
				if err := sess.Save(c.Request(), c.Response()); err != nil {
					log.Error("save session failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, errorJSON("session error"))
				}
			}

			c.Set(CtxSessionIDKey, sid)
			return next(c)
		}
	}
}

// GetSessionID は SessionID が入れた値を返す。
func GetSessionID(c echo.Context) string {
	sid, _ := c.Get(CtxSessionIDKey).(string)
	return sid
}
