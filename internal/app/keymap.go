package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyUp          = "up"
	KeyDown        = "down"
	KeyJ           = "j"
	KeyK           = "k"
	KeyPlay        = "p"
	KeyPauseResume = "o"
	KeyStopPlay    = "s"
	KeyDelete      = "d"
	KeyRename      = "r"
	KeyForward     = "f"
	KeyRetry       = "e"
	KeyCycleModel  = "m"
	KeyCopy        = "y"
	KeyEnter       = "enter"
	KeyEsc         = "esc"
	KeyBackspace   = "backspace"
)
