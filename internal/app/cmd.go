package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はPostgreSQLのマイグレーション、またはMongoDBのインデックス作成を実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はサンプル商品を投入することを示す。
	CommandSeed Command = "seed"
	// CommandPurgeSessions は期限切れセッションを一括削除することを示す。
	CommandPurgeSessions Command = "purge-sessions"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "seed":
		return CommandSeed
	case "purge-sessions":
		return CommandPurgeSessions
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
