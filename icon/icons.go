package icon

// Icon identifies a UI symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Question
	Play
	Pause
	Stop
	Buffering
	Video
	Audio
	Subtitle
	Lua
)

var icons = map[Icon]*iconDef{
	Success:   {emoji: "🎉", nerd: "\uf00c", plain: "✓", kaomoji: "(ᵔ◡ᵔ)", squares: "🟩"},
	Fail:      {emoji: "👹", nerd: "\uf00d", plain: "✖", kaomoji: "(╯°□°)╯", squares: "🟥"},
	Progress:  {emoji: "👾", nerd: "\uf110", plain: "…", kaomoji: "(・_・ヾ", squares: "🟦"},
	Question:  {emoji: "🤨", nerd: "\uf128", plain: "?", kaomoji: "(・・ )?", squares: "🟪"},
	Play:      {emoji: "▶️", nerd: "\uf04b", plain: ">", kaomoji: "ヽ(・∀・)ﾉ", squares: "🟩"},
	Pause:     {emoji: "⏸️", nerd: "\uf04c", plain: "||", kaomoji: "(－_－) zzZ", squares: "🟨"},
	Stop:      {emoji: "⏹️", nerd: "\uf04d", plain: "[]", kaomoji: "(￣▽￣)ノ", squares: "⬛"},
	Buffering: {emoji: "⏳", nerd: "\uf252", plain: "~", kaomoji: "(・_・;)", squares: "🟧"},
	Video:     {emoji: "🎞️", nerd: "\uf03d", plain: "V", kaomoji: "[▓]", squares: "🟫"},
	Audio:     {emoji: "🔊", nerd: "\uf028", plain: "A", kaomoji: "♪(´▽｀)", squares: "🟫"},
	Subtitle:  {emoji: "💬", nerd: "\uf075", plain: "S", kaomoji: "( ˘▽˘)っ", squares: "🟫"},
	Lua:       {emoji: "🌙", nerd: "\ue620", plain: "Lua", kaomoji: "☽", squares: "🟦"},
}
