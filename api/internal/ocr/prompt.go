package ocr

// PlatePrompt is the fixed instruction sent with every plate crop. The
// model is pushed hard towards a bare JSON object; ParsePlate covers the
// cases where it drifts anyway.
const PlatePrompt = `You are reading a photo of a vehicle license plate.
The plate has exactly three parts:
- "left_number": the numeric part on the left,
- "middle_text": the text part in the middle, written in its original script,
- "right_number": the numeric part on the right.

Return ONLY a JSON object with exactly these three fields and nothing else:
{"left_number": "...", "middle_text": "...", "right_number": "..."}

Rules:
- Keep middle_text in its original script. Do NOT transliterate or translate it.
- If a part cannot be read with confidence, set that field to the exact string "UNREADABLE".
- Do not add any explanation, markdown or text outside the JSON object.`

// MaxTokens bounds the reply; three short fields never need more.
const MaxTokens = 100
