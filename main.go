// @title MedTrain 训练会话引擎 API
// @version 1.0
// @description 医学在线学习平台的训练会话服务：会话参数解析、自适应选题、作答评估与提醒。

// @contact.name API支持
// @contact.email support@medtrain.local

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"os"

	"medtrain_backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
