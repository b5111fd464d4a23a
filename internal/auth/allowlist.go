package auth

import "strings"

// defaultAdminEmails はADMIN_EMAILSが未設定の場合に使用する管理者メールアドレス。
var defaultAdminEmails = []string{
	"lucasfdandrea@gmail.com",
	"gigidepollo123@gmail.com",
}

// NormalizeEmail はメールアドレスの前後空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AdminAllowlist は管理者として扱うメールアドレスの集合。
// 起動時に1回だけ構築し、以降は読み取り専用として共有する。
type AdminAllowlist struct {
	emails map[string]struct{}
}

// NewAdminAllowlist はカンマ区切りのメールアドレス文字列から許可リストを生成する。
// 空文字列（または正規化後に有効な値が残らない場合）は組み込みのデフォルトを使用する。
func NewAdminAllowlist(raw string) AdminAllowlist {
	emails := parseEmails(strings.Split(raw, ","))
	if len(emails) == 0 {
		emails = parseEmails(defaultAdminEmails)
	}
	return AdminAllowlist{emails: emails}
}

func parseEmails(values []string) map[string]struct{} {
	emails := make(map[string]struct{}, len(values))
	for _, v := range values {
		if e := NormalizeEmail(v); e != "" {
			emails[e] = struct{}{}
		}
	}
	return emails
}

// Contains は正規化したemailが許可リストに含まれるかどうかを返す。
func (a AdminAllowlist) Contains(email string) bool {
	_, ok := a.emails[NormalizeEmail(email)]
	return ok
}

// Len は許可リストの件数を返す。
func (a AdminAllowlist) Len() int {
	return len(a.emails)
}
