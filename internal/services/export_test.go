package services

// SetTelegramAPIBase points s at a test server.
func SetTelegramAPIBase(s *TelegramService, base string) {
	s.apiBase = base
}
