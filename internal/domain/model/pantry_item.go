package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// pantryコレクションの1ドキュメント。
// name_key（大文字小文字を無視した名前）で一意。
type PantryItem struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	NameKey  string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	Quantity int64  `gorm:"not null" json:"quantity"`
	Image    string `gorm:"type:text" json:"image,omitempty"`

	// 画面状態では画像本体を持たず、有無だけ残す
	HasImage bool `gorm:"-" json:"has_image,omitempty"`

	// 楽観ロック用。書き込みごとに+1
	Version int64 `gorm:"not null" json:"version"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PantryItem) TableName() string {
	return "pantry"
}

var folder = cases.Fold()

// NameKey は一意性チェックに使う名前のキー。
func NameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// DisplayName は先頭1文字だけ大文字にする（表示用、保存値は変えない）。
func DisplayName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// MatchesQuery は名前に検索文字列が含まれるか（大文字小文字無視）。
func (i PantryItem) MatchesQuery(query string) bool {
	return strings.Contains(folder.String(i.Name), folder.String(query))
}

// WithoutImage は画像本体を外したコピー。
func (i PantryItem) WithoutImage() PantryItem {
	i.HasImage = i.HasImage || i.Image != ""
	i.Image = ""
	return i
}

// IsImageDataURI は画像の data URI か（imgのsrcに出してよいのはこれだけ）。
func IsImageDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}
