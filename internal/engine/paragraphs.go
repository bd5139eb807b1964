package engine

var DefaultParagraphs = []string{
	"The quick brown fox jumps over the lazy dog while the farmer watches from the porch and wonders why the dog never chases anything anymore.",
	"Typing fast is less about speed and more about rhythm. Keep your eyes on the text, let your fingers find the keys, and never stop to fix a mistake twice.",
	"A small town library stayed open late every Friday so that students could finish their projects, and the librarian always left a pot of tea by the door.",
	"Rain drummed on the tin roof of the old train station as the last passengers hurried inside, shaking water from their coats and checking the board for delays.",
	"Every good system starts simple. Add one feature at a time, measure what changed, and resist the urge to build for problems you do not have yet.",
	"The mountain trail wound past frozen lakes and quiet pine forests until it reached a ridge where the whole valley spread out below like a painted map.",
	"She opened the letter slowly, unsure whether it held good news or bad, and found only a pressed flower and a single line that read see you in spring.",
	"Coffee in one hand and a keyboard under the other, the developer watched the tests turn green one after another and finally allowed herself a small smile.",
}
