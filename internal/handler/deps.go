package handler

import (
	"pairchat/internal/app/chat"
	"pairchat/internal/configs"
)

type AppDeps struct {
	Manager *chat.Manager
	Config  *configs.AppConfig
}
