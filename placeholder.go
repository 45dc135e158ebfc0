package pdfquiz

// PlaceholderSummary returns the fixed demo summary used when no live
// generation is available or the generated text could not be parsed.
func PlaceholderSummary() []SummarySection {
	return []SummarySection{
		{
			Title: "Main Concepts",
			Points: []string{
				"Educational content is parsed from PDF documents for learning purposes",
				"Text extraction is performed to obtain readable content",
				"Natural language processing creates structured information",
				"Summarization focuses on key points and main ideas",
			},
		},
		{
			Title: "Key Benefits",
			Points: []string{
				"Easy comprehension of complex materials",
				"Faster learning through organized bullet points",
				"Reinforcement through interactive quizzes",
				"Immediate feedback on understanding",
			},
		},
		{
			Title: "Learning Applications",
			Points: []string{
				"Academic study and exam preparation",
				"Professional development and training",
				"Self-paced learning for various subjects",
				"Knowledge retention through testing",
			},
		},
	}
}

// PlaceholderQuestions returns the fixed 10-question demo quiz
func PlaceholderQuestions() []QuizQuestion {
	return []QuizQuestion{
		{
			Question: "What is the primary purpose of parsing PDFs in this application?",
			Options: []string{
				"To modify the PDF structure",
				"To extract text for educational purposes",
				"To create new PDF documents",
				"To validate PDF authenticity",
			},
			CorrectAnswer: 1,
			Explanation:   "The application parses PDFs to extract educational content that can be used for learning purposes.",
		},
		{
			Question: "Which process is used to create structured information from text?",
			Options: []string{
				"Data validation",
				"Text compression",
				"Natural language processing",
				"Binary encoding",
			},
			CorrectAnswer: 2,
			Explanation:   "Natural language processing techniques are used to transform raw text into structured, meaningful information.",
		},
		{
			Question: "What is the focus of the summarization process?",
			Options: []string{
				"Grammar correction",
				"Key points and main ideas",
				"Document formatting",
				"File size reduction",
			},
			CorrectAnswer: 1,
			Explanation:   "The summarization process focuses on extracting and presenting key points and main ideas from the content.",
		},
		{
			Question: "Which of the following is a stated benefit of the summarization feature?",
			Options: []string{
				"Improved writing skills",
				"Enhanced document security",
				"Easier comprehension of complex materials",
				"Reduced storage requirements",
			},
			CorrectAnswer: 2,
			Explanation:   "The summary helps users more easily comprehend complex materials by organizing information into digestible points.",
		},
		{
			Question: "How are quiz questions used in the learning process?",
			Options: []string{
				"To grade users' performance",
				"To reinforce learning through testing",
				"To collect user data",
				"To generate new content",
			},
			CorrectAnswer: 1,
			Explanation:   "Interactive quizzes reinforce learning by testing understanding and providing immediate feedback.",
		},
		{
			Question: "Which application of this platform would be most suitable for a college student?",
			Options: []string{
				"Content creation",
				"Document storage",
				"Academic study and exam preparation",
				"Professional networking",
			},
			CorrectAnswer: 2,
			Explanation:   "Academic study and exam preparation is explicitly mentioned as an application, making it most suitable for college students.",
		},
		{
			Question: "What does the platform provide immediately after a quiz question is answered?",
			Options: []string{
				"New learning materials",
				"Peer comparison statistics",
				"Feedback on understanding",
				"Certificate of completion",
			},
			CorrectAnswer: 2,
			Explanation:   "The platform provides immediate feedback on understanding when quiz questions are answered.",
		},
		{
			Question: "Which learning approach is supported by the platform's features?",
			Options: []string{
				"Collaborative learning only",
				"Instructor-led training only",
				"Self-paced learning for various subjects",
				"Standardized testing preparation only",
			},
			CorrectAnswer: 2,
			Explanation:   "Self-paced learning for various subjects is supported by the platform's features for individual study.",
		},
		{
			Question: "What type of content organization is used in the summary?",
			Options: []string{
				"Chronological ordering",
				"Alphabetical sorting",
				"Bullet points for key concepts",
				"Random arrangement",
			},
			CorrectAnswer: 2,
			Explanation:   "The summary is organized using bullet points to clearly present key concepts and facilitate easy reading.",
		},
		{
			Question: "Which cognitive process is primarily supported by the quiz feature?",
			Options: []string{
				"Creativity",
				"Knowledge retention",
				"Social intelligence",
				"Physical coordination",
			},
			CorrectAnswer: 1,
			Explanation:   "Knowledge retention through testing is specifically mentioned as a benefit of the quiz feature.",
		},
	}
}
