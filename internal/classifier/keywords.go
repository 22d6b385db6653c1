package classifier

var englishKeywords = []string{
	// sections
	"experience", "education", "skills", "work experience", "employment",
	"qualifications", "profile", "summary", "objective", "career",
	"professional experience", "work history", "academic background",
	"certifications", "certificates", "training", "projects",
	"achievements", "accomplishments", "references",
	// contact details
	"email", "phone", "mobile", "address", "linkedin", "portfolio",
	"contact", "tel", "website", "gmail", "hotmail", "yahoo",
	// phrasing
	"years of experience", "worked at", "worked as", "responsible for",
	"degree in", "bachelor", "master", "diploma", "graduated",
	"university", "college", "institute",
	"resume", "curriculum vitae", "cv", "personal information",
	// titles
	"developer", "engineer", "manager", "analyst", "designer",
	"specialist", "coordinator",
}

var arabicKeywords = []string{
	// experience
	"خبرة", "خبرات", "الخبرة", "الخبرات",
	// education and qualifications
	"تعليم", "التعليم", "مؤهل", "مؤهلات", "المؤهل", "المؤهلات",
	// skills
	"مهارة", "مهارات", "المهارات", "المهارة",
	// certificates and courses
	"شهادة", "شهادات", "الشهادات", "دورة", "دورات", "الدورات",
	// projects and achievements
	"مشروع", "مشاريع", "المشاريع", "انجاز", "انجازات", "الانجازات",
	// degrees and institutions
	"بكالوريوس", "ماجستير", "دبلوم", "دكتوراه",
	"جامعة", "الجامعة", "كلية", "الكلية", "معهد", "المعهد", "تخرج", "التخرج",
	// work
	"عمل", "العمل", "وظيفة", "الوظيفة", "شركة", "الشركة", "مؤسسة", "المؤسسة",
	// titles
	"مطور", "مهندس", "محلل", "مصمم", "مدير",
	"مطورة", "مهندسة", "محللة", "مصممة", "مديرة",
	// personal information
	"اسم", "الاسم", "هاتف", "الهاتف", "جوال", "الجوال",
	"بريد", "البريد", "الكتروني", "موقع", "الموقع", "عنوان", "العنوان",
	"جنسية", "الجنسية",
	// document
	"سيرة", "السيرة", "ذاتية", "الذاتية", "معلومات", "شخصية",
	"ملخص", "الملخص", "مهني", "المهني", "تقني", "التقني",
	"لغات", "اللغات", "لغة",
}
