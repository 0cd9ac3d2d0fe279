package utcp

func (h *Host) logerr(msg string, args ...any) {
	if h.log == nil {
		return
	}
	h.log.Error(msg, args...)
}

func (h *Host) warn(msg string, args ...any) {
	if h.log == nil {
		return
	}
	h.log.Warn(msg, args...)
}

func (h *Host) info(msg string, args ...any) {
	if h.log == nil {
		return
	}
	h.log.Info(msg, args...)
}

func (h *Host) debug(msg string, args ...any) {
	if h.log == nil {
		return
	}
	h.log.Debug(msg, args...)
}
