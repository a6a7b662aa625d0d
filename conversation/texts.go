package conversation

// Chat replies used across authoring sessions.
const (
	msgOnlyAdmin = "Sorry, only the administrator can manage notes."

	msgPromptContent = "Send the HTML content for the new note.\n" +
		"You can paste it as a message or upload it as a file."

	msgPromptTitle = "Got the content. Now send a title for the note."

	msgPromptDescription = "Now send a short description,\n" +
		"or send \"-\" to skip it."

	msgDocumentFailed = "I could not read that file. Please send it again."

	msgDocumentTooLarge = "That file is too large (over 1 MB). Please send a smaller one."

	msgCreateFailed = "Saving the note failed. Please send the description again."

	msgNothingToCancel = "There is no note in progress."

	msgCancelled = "Note creation cancelled."
)
