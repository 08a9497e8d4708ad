// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package workshop implements the Prompt Workshop, the interactive screen of
ningprompt.

The screen has a prompt editor, a settings bar and a result pane:

	Prompt Workshop  transform a prompt with a template
	Mode: enhance  |  Intensity: =====----- 0.5  |  Output: same as prompt  | ...
	+ Original prompt ------------------------------------------- 12 chars +
	| write a poem                                                         |
	+----------------------------------------------------------------------+
	+ Result | ------------------------------------------------------------ +
	| ...                                                                  |
	+----------------------------------------------------------------------+
	Generating...
	ctrl+s transform  esc cancel  tab next mode  ...

The mode selector lists the built-in modes followed by the custom templates
in the template directory; it is rebuilt when a prompt.Watcher reports a
change. With generation.stream enabled fragments are pulled from
processor.Stream one command at a time and appended as they arrive;
otherwise a single ProcessOnce call fills the pane. Esc cancels the running
request and keeps whatever arrived.

Theme (f4) and interface language (f6) changes are saved immediately. The
generation settings are saved as the new defaults on each submission.
*/
package workshop
