package materialize

// fieldLabelsJA maps result field names to their Japanese labels for the
// original-language document.
var fieldLabelsJA = map[string]string{
	"url":                          "URL",
	"title":                        "タイトル",
	"original_title":               "元のタイトル",
	"project_owner":                "プロジェクトオーナー",
	"owner_website":                "オーナーサイト",
	"owner_sns":                    "オーナーSNS",
	"owner_country":                "オーナー国",
	"contact_info":                 "連絡先",
	"image_url":                    "画像",
	"status":                       "ステータス",
	"platform":                     "プラットフォーム",
	"category":                     "カテゴリー",
	"description":                  "説明",
	"crowdfund_start_date":         "クラウドファンディング開始日",
	"crowdfund_end_date":           "クラウドファンディング終了日",
	"support_amount":               "支援金額",
	"current_or_completed_project": "現在または完了したプロジェクト",
	"achievement_rate":             "達成率",
	"supporters":                   "サポーター",
	"amount":                       "金額",
	"ocr_enhanced":                 "OCR強化",
	"ocr_error":                    "OCRエラー",
	"confidence_scores":            "信頼度スコア",
	"images_processed":             "処理済み画像数",
	"enhancement_timestamp":        "強化タイムスタンプ",
	"translation_note":             "翻訳ノート",
}

// valueTranslationsJA maps common English field values to Japanese.
var valueTranslationsJA = map[string]string{
	"successful":     "成功済み",
	"live":           "進行中",
	"ended":          "終了済み",
	"canceled":       "キャンセル済み",
	"suspended":      "停止中",
	"failed":         "失敗",
	"Current":        "現在",
	"Completed":      "完了済み",
	"United States":  "アメリカ",
	"United Kingdom": "イギリス",
	"Canada":         "カナダ",
	"Australia":      "オーストラリア",
	"Germany":        "ドイツ",
	"France":         "フランス",
	"Netherlands":    "オランダ",
	"Sweden":         "スウェーデン",
	"Japan":          "日本",
	"South Korea":    "韓国",
	"Korea":          "韓国",
	"China":          "中国",
	"kickstarter":    "キックスターター",
	"indiegogo":      "インディーゴーゴー",
}

// phrasesENToJA is the curated substitution table applied to titles and
// descriptions when building the original-language view for English
// platforms. Matching is word-bounded and case-insensitive; unmatched text
// (product names, model numbers) passes through untouched.
var phrasesENToJA = map[string]string{
	"Portable":       "ポータブル",
	"Swing Chair":    "スイングチェア",
	"Set Up":         "セットアップ",
	"Unwind":         "リラックス",
	"All Day":        "一日中",
	"Fine Art":       "ファインアート",
	"Art":            "アート",
	"Book":           "ブック",
	"Books":          "ブック",
	"Season":         "シーズン",
	"Game":           "ゲーム",
	"Games":          "ゲーム",
	"Music Festival": "音楽フェス",
	"Music":          "音楽",
	"Studio":         "スタジオ",
	"Keyboard":       "キーボード",
	"Flow":           "フロー",
	"Smoothest":      "最もスムーズな",
	"Evolved":        "進化した",
	"Redefined":      "再定義された",
	"Unleashed":      "解き放たれた",
	"Miniature":      "ミニチュア",
	"Miniatures":     "ミニチュア",
	"Literature":     "文学",
	"Smash":          "スマッシュ",
	"Fame":           "名声",
	"Emagazine":      "電子雑誌",
	"Australian":     "オーストラリアの",

	"innovative project":     "革新的なプロジェクト",
	"This exciting campaign": "このエキサイティングなキャンペーン",
	"exciting campaign":      "エキサイティングなキャンペーン",
	"created by":             "によって作成された",
	"Kickstarter":            "キックスターター",
	"Indiegogo":              "インディーゴーゴー",
}

// phrasesJPToEN is the curated substitution table applied to titles and
// descriptions when building the English view for Japanese-language
// platforms. Word-level substitution keeps product names intact while making
// the line scannable for English readers.
var phrasesJPToEN = map[string]string{
	"プロジェクト":  "Project",
	"ゲーム":     "Game",
	"映画":      "Film",
	"音楽":      "Music",
	"アルバム":    "Album",
	"書籍":      "Book",
	"アート":     "Art",
	"写真":      "Photography",
	"ファッション":  "Fashion",
	"料理":      "Cooking",
	"レストラン":   "Restaurant",
	"グルメ":     "Gourmet",
	"技術":      "Technology",
	"テクノロジー":  "Technology",
	"アプリ":     "App",
	"ロボット":    "Robot",
	"ドローン":    "Drone",
	"スマート":    "Smart",
	"デジタル":    "Digital",
	"オンライン":   "Online",
	"システム":    "System",
	"デバイス":    "Device",
	"ガジェット":   "Gadget",
	"ツール":     "Tool",
	"便利":      "Convenient",
	"簡単":      "Easy",
	"高品質":     "High Quality",
	"プレミアム":   "Premium",
	"エコ":      "Eco",
	"環境":      "Environment",
	"健康":      "Health",
	"美容":      "Beauty",
	"フィットネス":  "Fitness",
	"スポーツ":    "Sports",
	"旅行":      "Travel",
	"観光":      "Tourism",
	"体験":      "Experience",
	"文化":      "Culture",
	"伝統":      "Traditional",
	"日本":      "Japan",
	"東京":      "Tokyo",
	"大阪":      "Osaka",
	"京都":      "Kyoto",
	"地域":      "Regional",
	"復興":      "Reconstruction",
	"支援":      "Support",
	"寄付":      "Donation",
	"チャリティー":  "Charity",
	"ボランティア":  "Volunteer",
	"社会":      "Society",
	"コミュニティ":  "Community",
	"教育":      "Education",
	"学校":      "School",
	"大学":      "University",
	"研究":      "Research",
	"財団":      "Foundation",
	"株式会社":    "Co., Ltd.",
	"音楽フェス":   "Music Festival",
	"イベント":    "Event",
	"オーディオ":   "Audio",
	"スピーカー":   "Speaker",
	"イヤホン":    "Earphones",
	"ヘッドホン":   "Headphones",
	"キャンペーン":  "Campaign",
	"クラウドファンディング": "Crowdfunding",
}
