package constant

// ResolveFn is the global function every Lua resolver script must define.
const ResolveFn = "Resolve"

// ResolverTemplate is a Go text/template for scaffolding new Lua resolver scripts.
const ResolverTemplate = `{{ $divider := repeat "-" (plus (max (len .Pattern) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @pattern {{ .Pattern }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}


---@alias media { url: string, title: string|nil, headers: table<string, string>|nil }


----- IMPORTS -----
--- END IMPORTS ---



----- MAIN -----

--- Turns a page or stream reference into a playable media locator.
-- @param url string Locator given to the player
-- @return media|nil Playable media, or nil if this script does not handle the url
function {{ .ResolveFn }}(url)
	if not string.find(url, "{{ .Pattern }}", 1, true) then
		return nil
	end

	return { url = url }
end

--- END MAIN ---

-- ex: ts=4 sw=4 et filetype=lua
`
