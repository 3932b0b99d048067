package main

import (
	"github.com/shouni/itihas-kahani/cmd"
)

// main はアプリケーションの唯一のエントリーポイントなのだ！
func main() {
	cmd.Execute()
}
